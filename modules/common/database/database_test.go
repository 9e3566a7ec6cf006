package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatID(t *testing.T) {
	assert.Equal(t, "3f2a", formatID("3f2a"))
	assert.Equal(t, "42", formatID(float64(42)))
	assert.Equal(t, "1234567890123", formatID(float64(1234567890123)))
	assert.Equal(t, "7", formatID(7))
}
