package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := NewMemory[string]()
	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := NewMemory[int]()
	c.Set("k", 42, 30*time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	// a second read must not resurrect the entry
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestOverwrite(t *testing.T) {
	c := NewMemory[string]()
	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, c.Len())
}

func TestDeletePrefix(t *testing.T) {
	c := NewMemory[int]()
	c.Set("products:list", 1, time.Minute)
	c.Set("products:developer:d1", 2, time.Minute)
	c.Set("user:u1", 3, time.Minute)

	assert.Equal(t, 2, c.DeletePrefix("products:"))

	_, ok := c.Get("products:list")
	assert.False(t, ok)
	_, ok = c.Get("user:u1")
	assert.True(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c := NewMemory[string]()
	calls := 0
	loader := func() (string, error) {
		calls++
		return "loaded", nil
	}

	got, err := c.GetOrLoad("k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)

	got, err = c.GetOrLoad("k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)
	assert.Equal(t, 1, calls, "second read must come from cache")
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := NewMemory[string]()
	boom := errors.New("boom")
	_, err := c.GetOrLoad("k", time.Minute, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok)
}
