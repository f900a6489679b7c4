package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("cache entry not found")
	ErrCorrupted = errors.New("cache entry is corrupted")
)

// Entry is a rendered payload together with the time its key was last
// written. LastModified comes from the storage medium itself rather than
// being re-derived at read time, so staleness comparisons stay consistent.
type Entry struct {
	Value        []byte
	LastModified time.Time
}

// Cache is a content-addressed store for rendered output. Implementations
// must tolerate concurrent operations on disjoint keys without coordination;
// concurrent Set calls on the same key are last-writer-wins, with each write
// atomic from a reader's perspective.
type Cache interface {
	// Get fails with ErrNotFound on a missing key and ErrCorrupted when the
	// stored payload cannot be decoded.
	Get(ctx context.Context, key string) (Entry, error)

	// Set overwrites unconditionally. The background flag marks writes made
	// by a revalidation pass rather than a first render; it does not change
	// the write semantics.
	Set(ctx context.Context, key string, value []byte, background bool) error

	// Delete is idempotent and succeeds on a missing key.
	Delete(ctx context.Context, key string) error
}
