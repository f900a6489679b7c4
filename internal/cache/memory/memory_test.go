package memory_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/regenlabs/regen/internal/cache/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSimple(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()

	// Retrieval of a non-existent key should fail with ErrNotFound
	_, err := cache.Get(ctx, "test")
	require.ErrorIs(t, err, cachepkg.ErrNotFound)

	// Insertion of a non-existent key should succeed
	before := time.Now()
	require.NoError(t, cache.Set(ctx, "test", []byte("Hello, World!"), false))

	entry, err := cache.Get(ctx, "test")
	require.NoError(t, err)
	require.Equal(t, []byte("Hello, World!"), entry.Value)
	require.False(t, entry.LastModified.Before(before))

	// Re-insertion should overwrite and keep LastModified non-decreasing
	require.NoError(t, cache.Set(ctx, "test", []byte("Bye bye!"), true))

	newEntry, err := cache.Get(ctx, "test")
	require.NoError(t, err)
	require.Equal(t, []byte("Bye bye!"), newEntry.Value)
	require.False(t, newEntry.LastModified.Before(entry.LastModified))

	// Retrieval of a deleted key should fail
	require.NoError(t, cache.Delete(ctx, "test"))

	_, err = cache.Get(ctx, "test")
	require.ErrorIs(t, err, cachepkg.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	cache := memory.New()

	require.NoError(t, cache.Delete(context.Background(), uuid.NewString()))
}

func TestConcurrentSetSameKey(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()

	const writers = 32

	// Each writer stores a distinguishable payload
	payloads := make([][]byte, writers)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("%d:%s", i, strings.Repeat(uuid.NewString(), 64)))
	}

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(payload []byte) {
			defer wg.Done()

			require.NoError(t, cache.Set(ctx, "contended", payload, false))
		}(payloads[i])
	}

	wg.Wait()

	// The store must hold exactly one of the payloads, never an interleaving
	entry, err := cache.Get(ctx, "contended")
	require.NoError(t, err)
	require.Contains(t, payloads, entry.Value)
}
