package memory

import (
	"bytes"
	"context"
	"time"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is an in-process cache backed by a sharded concurrent map, so
// operations on disjoint keys proceed without a shared lock.
type Memory struct {
	entries *xsync.MapOf[string, cachepkg.Entry]
}

func New() *Memory {
	return &Memory{
		entries: xsync.NewMapOf[string, cachepkg.Entry](),
	}
}

func (memory *Memory) Get(_ context.Context, key string) (cachepkg.Entry, error) {
	entry, ok := memory.entries.Load(key)
	if !ok {
		return cachepkg.Entry{}, cachepkg.ErrNotFound
	}

	return entry, nil
}

func (memory *Memory) Set(_ context.Context, key string, value []byte, _ bool) error {
	memory.entries.Compute(key, func(oldEntry cachepkg.Entry, _ bool) (cachepkg.Entry, bool) {
		lastModified := time.Now()

		// Keep LastModified non-decreasing per key even if the wall clock steps back
		if lastModified.Before(oldEntry.LastModified) {
			lastModified = oldEntry.LastModified
		}

		return cachepkg.Entry{
			Value:        bytes.Clone(value),
			LastModified: lastModified,
		}, false
	})

	return nil
}

func (memory *Memory) Delete(_ context.Context, key string) error {
	memory.entries.Delete(key)

	return nil
}
