package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quel-catalog-server/modules/common/model"
)

func TestProgressWriter_SerializesConcurrentEvents(t *testing.T) {
	store := newFakeStore(&model.Batch{ID: "b1", MerchantID: "m1"})
	p := newProgressWriter(context.Background(), store, "m1", "b1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				p.Failed(model.ErrorEntry{Image: fmt.Sprintf("img-%d", i), Error: "boom"})
				return
			}
			p.Processed(1)
		}(i)
	}
	wg.Wait()
	require.NoError(t, p.Close())

	processed, errorLog := p.Counts()
	assert.Equal(t, 15, processed)
	assert.Len(t, errorLog, 5)

	batch := store.snapshot()
	assert.Equal(t, 15, batch.ProcessedCount)
	assert.Equal(t, 5, batch.FailedCount)
	assert.Len(t, batch.ErrorLog, 5)
	assert.Len(t, store.updates, 20)
}

func TestProgressWriter_KeepsFirstErrorAndDrains(t *testing.T) {
	store := newFakeStore(&model.Batch{ID: "b1", MerchantID: "m1"})
	calls := 0
	store.failUpdate = func(map[string]interface{}) error {
		calls++
		return errors.New("timeout")
	}

	p := newProgressWriter(context.Background(), store, "m1", "b1")
	for i := 0; i < 100; i++ {
		p.Processed(1)
	}
	err := p.Close()

	require.Error(t, err)
	assert.Equal(t, err, p.Close())
	assert.Equal(t, 1, calls)
	processed, _ := p.Counts()
	assert.Equal(t, 100, processed)
}
