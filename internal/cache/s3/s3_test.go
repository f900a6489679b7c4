package s3_test

import (
	"context"
	"os"
	"testing"
	"time"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/regenlabs/regen/internal/cache/s3"
	"github.com/regenlabs/regen/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSimple(t *testing.T) {
	if os.Getenv("REGEN_S3_TESTS") == "" {
		t.Skip("set REGEN_S3_TESTS=1 to run S3 cache tests (requires Docker)")
	}

	ctx := context.Background()

	cache, err := s3.NewFromConfig(ctx, testutil.S3(t))
	require.NoError(t, err)

	key := uuid.NewString()

	// Retrieval of a non-existent key should fail
	_, err = cache.Get(ctx, key)
	require.ErrorIs(t, err, cachepkg.ErrNotFound)

	// Deletion of a non-existent key should succeed
	require.NoError(t, cache.Delete(ctx, key))

	// Insertion of a non-existent key should succeed
	before := time.Now()
	require.NoError(t, cache.Set(ctx, key, []byte("Hello, World!"), false))

	// Retrieval should yield the stored value with the object's own timestamp
	entry, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello, World!"), entry.Value)
	require.False(t, entry.LastModified.Before(before.Truncate(time.Second)))

	// Deletion of an existing key should succeed
	require.NoError(t, cache.Delete(ctx, key))

	_, err = cache.Get(ctx, key)
	require.ErrorIs(t, err, cachepkg.ErrNotFound)
}
