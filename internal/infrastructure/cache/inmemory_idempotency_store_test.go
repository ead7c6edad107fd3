package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire on a held key fails", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		ok, err := store.Acquire(ctx, "run:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Acquire(ctx, "run:1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired lock can be re-acquired", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		ok, err := store.Acquire(ctx, "run:1", time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = store.Acquire(ctx, "run:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("distinct keys do not contend", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		for i := 0; i < 3; i++ {
			ok, err := store.Acquire(ctx, fmt.Sprintf("run:%d", i), time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		assert.Equal(t, 3, store.Size())
	})
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ok, err := store.Acquire(ctx, "run:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "run:1"))

	ok, err = store.Acquire(ctx, "run:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryIdempotencyStore_ConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	const goroutines = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Acquire(ctx, "run:contested", time.Minute)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
