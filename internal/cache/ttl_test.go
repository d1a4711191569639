package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGetExpire(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 50*time.Millisecond)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)

	// Non-positive TTL stores nothing.
	c.Set("b", 2, 0)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestReadThrough_LoadsOnceAndSkipsErrors(t *testing.T) {
	r := NewReadThrough[string, string](time.Minute)

	loads := 0
	loader := func() (string, error) {
		loads++
		return "value", nil
	}

	v, err := r.Get("key", loader)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = r.Get("key", loader)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	// Errors are never cached.
	failing := func() (string, error) { return "", errors.New("boom") }
	_, err = r.Get("other", failing)
	assert.Error(t, err)
	_, err = r.Get("other", loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestReadThrough_Invalidate(t *testing.T) {
	r := NewReadThrough[string, int](time.Minute)

	loads := 0
	loader := func() (int, error) {
		loads++
		return loads, nil
	}

	first, _ := r.Get("k", loader)
	r.Invalidate("k")
	second, _ := r.Get("k", loader)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
