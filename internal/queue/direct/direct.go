// Package direct delivers revalidation messages by re-invoking the render
// path in the same process.
package direct

import (
	"context"
	"sync"

	"github.com/regenlabs/regen/internal/queue"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

const DefaultWorkers = 4

// RegenerateFunc performs one forced regeneration pass for the referenced
// resource. It must be idempotent.
type RegenerateFunc func(ctx context.Context, message queue.Message) error

// Direct runs regenerations on their own goroutines, bounded by a worker
// budget. Messages for a key that already has a regeneration in flight are
// collapsed, giving at-most-once effective regeneration per staleness
// window.
type Direct struct {
	regenerate RegenerateFunc
	inflight   *xsync.MapOf[string, struct{}]
	slots      chan struct{}
	wg         sync.WaitGroup
	logger     *zap.SugaredLogger
}

func New(regenerate RegenerateFunc, workers int, logger *zap.SugaredLogger) *Direct {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Direct{
		regenerate: regenerate,
		inflight:   xsync.NewMapOf[string, struct{}](),
		slots:      make(chan struct{}, workers),
		logger:     logger,
	}
}

func (direct *Direct) Send(_ context.Context, message queue.Message) error {
	if _, loaded := direct.inflight.LoadOrStore(message.Key, struct{}{}); loaded {
		// A regeneration for this key is already outstanding
		direct.logger.Debugf("collapsing revalidation %s: key %q is already being regenerated",
			message.ID, message.Key)

		return nil
	}

	direct.wg.Add(1)

	go func() {
		defer direct.wg.Done()
		defer direct.inflight.Delete(message.Key)

		direct.slots <- struct{}{}
		defer func() {
			<-direct.slots
		}()

		// The regeneration is not tied to the lifetime of the connection
		// that discovered the staleness
		if err := direct.regenerate(context.Background(), message); err != nil {
			direct.logger.Warnf("revalidation %s for key %q failed: %v",
				message.ID, message.Key, err)
		}
	}()

	return nil
}

// Wait blocks until all regenerations accepted so far have finished.
func (direct *Direct) Wait() {
	direct.wg.Wait()
}
