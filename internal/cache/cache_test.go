package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultcache/internal/cache"
)

func TestCache_GetMissing(t *testing.T) {
	t.Parallel()

	c := cache.New()
	value, ok := c.Get("db:password")
	assert.False(t, ok)
	assert.Empty(t, value)
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutThenGet(t *testing.T) {
	t.Parallel()

	c := cache.New()
	require.True(t, c.Put("db:password", "s3cret"))

	value, ok := c.Get("db:password")
	assert.True(t, ok)
	assert.Equal(t, "s3cret", value)
	assert.Equal(t, 1, c.Len())
}

func TestCache_FirstWriterWins(t *testing.T) {
	t.Parallel()

	c := cache.New()
	assert.True(t, c.Put("db:password", "first"))
	assert.False(t, c.Put("db:password", "second"))

	value, _ := c.Get("db:password")
	assert.Equal(t, "first", value)
	assert.Equal(t, 1, c.Len())
}

func TestCache_RejectsBlankValues(t *testing.T) {
	t.Parallel()

	c := cache.New()
	assert.False(t, c.Put("db:password", ""))
	assert.False(t, c.Put("db:user", "   "))
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("db:password")
	assert.False(t, ok)
}

func TestCache_Addresses(t *testing.T) {
	t.Parallel()

	c := cache.New()
	c.Put("b:key", "2")
	c.Put("a:key", "1")

	assert.Equal(t, []string{"a:key", "b:key"}, c.Addresses())
}

func TestCache_ConcurrentPutSameAddress(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	t.Parallel()

	c := cache.New()

	const writers = 64
	var wg sync.WaitGroup
	wg.Add(writers)

	inserted := make([]bool, writers)
	for i := 0; i < writers; i++ {
		go func(id int) {
			defer wg.Done()
			inserted[id] = c.Put("shared:key", fmt.Sprintf("value-%d", id))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range inserted {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one writer should insert")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentReadersAndWriters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	t.Parallel()

	c := cache.New()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			c.Put(fmt.Sprintf("path-%d:key", id), fmt.Sprintf("v%d", id))
		}(i)
		go func(id int) {
			defer wg.Done()
			_, _ = c.Get(fmt.Sprintf("path-%d:key", id))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, c.Len())
	for i := 0; i < n; i++ {
		value, ok := c.Get(fmt.Sprintf("path-%d:key", i))
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", i), value)
	}
}
