package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob(`{"batch_id":"b1","merchant_id":"m1"}`)
	require.NoError(t, err)
	assert.Equal(t, &Job{BatchID: "b1", MerchantID: "m1"}, job)

	_, err = DecodeJob(`{"batch_id":"b1"}`)
	assert.Error(t, err)

	_, err = DecodeJob("b1")
	assert.Error(t, err)
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "bulk:lock:b1", LockKey("b1"))
}
