package storage

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache()

	c.Set("greeting", "hi", 0)

	got := c.Get("greeting")
	require.NotNil(t, got)
	assert.Equal(t, "hi", *got)

	assert.Nil(t, c.Get("nope"))
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache()

	c.Set("temp", "v", 30)

	require.NotNil(t, c.Get("temp"))

	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, c.Get("temp"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_Incr(t *testing.T) {
	c := NewCache()

	n, err := c.Incr("hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr("hits")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got := c.Get("hits")
	require.NotNil(t, got)
	assert.Equal(t, "2", *got)
}

func TestCache_Incr_NotInteger(t *testing.T) {
	c := NewCache()

	c.Set("name", "joe", 0)

	_, err := c.Incr("name")
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestCache_Incr_ExpiredRestartsFromZero(t *testing.T) {
	c := NewCache()

	c.Set("hits", "99", 30)
	time.Sleep(50 * time.Millisecond)

	n, err := c.Incr("hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCache_Incr_Concurrent(t *testing.T) {
	c := NewCache()

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := c.Incr("hits"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got := c.Get("hits")
	require.NotNil(t, got)
	assert.Equal(t, strconv.Itoa(goroutines*perGoroutine), *got)
}

func TestCache_Del(t *testing.T) {
	c := NewCache()

	c.Set("a", "1", 0)
	c.Set("b", "2", 0)

	assert.Equal(t, 2, c.Del("a", "b", "c"))
	assert.Nil(t, c.Get("a"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_Reset(t *testing.T) {
	c := NewCache()

	c.Set("a", "1", 0)
	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Get("a"))
}
