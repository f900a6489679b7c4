// Package queue defines the revalidation queue contract: a fire-and-forget
// channel that eventually causes one regeneration pass for a stale resource.
package queue

import "context"

// Message references a resource whose cached copy went stale. Delivery is
// at-least-once; regeneration itself is idempotent, so duplicates are
// harmless, and transports are encouraged to collapse enqueues for a key
// that already has a regeneration outstanding.
type Message struct {
	// ID identifies a single enqueue, mostly for log correlation.
	ID string `json:"id"`

	// Key is the cache key to regenerate.
	Key string `json:"key"`

	// URL is the request URI (path plus query) to re-render.
	URL string `json:"url"`
}

// Queue accepts regeneration messages. Send must not block the caller on the
// regeneration it triggers; a failed Send is logged by the caller and never
// fails the request that discovered the staleness.
type Queue interface {
	Send(ctx context.Context, message Message) error
}
