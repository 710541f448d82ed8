package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		require.Greater(t, next, prev, "ids must increase")
		prev = next
	}
}

func TestNew_ParsesAsULID(t *testing.T) {
	_, err := ulid.Parse(New())
	assert.NoError(t, err)
}
