package noop

import (
	"context"

	cachepkg "github.com/regenlabs/regen/internal/cache"
)

// NoOp is the cache used when no store is configured: every lookup misses,
// so every request is rendered synchronously.
type NoOp struct{}

func New() *NoOp {
	return &NoOp{}
}

func (noop *NoOp) Get(_ context.Context, _ string) (cachepkg.Entry, error) {
	return cachepkg.Entry{}, cachepkg.ErrNotFound
}

func (noop *NoOp) Set(_ context.Context, _ string, _ []byte, _ bool) error {
	return nil
}

func (noop *NoOp) Delete(_ context.Context, _ string) error {
	return nil
}
