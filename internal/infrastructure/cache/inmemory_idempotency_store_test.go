package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Acquire(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first caller acquires", func(t *testing.T) {
		result, acquired, err := store.Acquire(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, acquired)
		assert.Empty(t, result)
	})

	t.Run("second caller sees in-flight claim", func(t *testing.T) {
		result, acquired, err := store.Acquire(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, acquired)
		assert.Empty(t, result)
	})

	t.Run("completed key returns stored result", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "key-1", "order-42", time.Hour))

		result, acquired, err := store.Acquire(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, acquired)
		assert.Equal(t, "order-42", result)
	})

	t.Run("released key can be acquired again", func(t *testing.T) {
		_, acquired, err := store.Acquire(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		require.True(t, acquired)

		require.NoError(t, store.Release(ctx, "key-2"))

		_, acquired, err = store.Acquire(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, acquired)
	})
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Now()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, acquired, err := store.Acquire(ctx, "key", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, store.Complete(ctx, "key", "done", time.Minute))

	now = now.Add(2 * time.Minute)

	_, acquired, err = store.Acquire(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "expired key should be claimable")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Zero(t, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentAcquire(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, acquired, err := store.Acquire(ctx, "contended", time.Hour)
			if err == nil && acquired {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
