package direct_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/queue/direct"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegenerates(t *testing.T) {
	var regenerations atomic.Int64

	directQueue := direct.New(func(_ context.Context, message queue.Message) error {
		regenerations.Add(1)

		return nil
	}, 0, zap.NewNop().Sugar())

	require.NoError(t, directQueue.Send(context.Background(), queue.Message{
		ID:  uuid.NewString(),
		Key: "/blog/a",
		URL: "/blog/a",
	}))

	directQueue.Wait()
	require.EqualValues(t, 1, regenerations.Load())
}

func TestCollapsesDuplicates(t *testing.T) {
	var regenerations atomic.Int64

	release := make(chan struct{})
	started := make(chan struct{})

	var startedOnce sync.Once

	directQueue := direct.New(func(_ context.Context, _ queue.Message) error {
		startedOnce.Do(func() {
			close(started)
		})
		<-release

		regenerations.Add(1)

		return nil
	}, 8, zap.NewNop().Sugar())

	// First message starts a regeneration and parks it
	require.NoError(t, directQueue.Send(context.Background(), queue.Message{
		ID: uuid.NewString(), Key: "/blog/a", URL: "/blog/a",
	}))
	<-started

	// Duplicates for the same key while one is outstanding must collapse
	for i := 0; i < 10; i++ {
		require.NoError(t, directQueue.Send(context.Background(), queue.Message{
			ID: uuid.NewString(), Key: "/blog/a", URL: "/blog/a",
		}))
	}

	close(release)
	directQueue.Wait()

	require.EqualValues(t, 1, regenerations.Load())
}

func TestSendDoesNotBlockOnRegeneration(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	directQueue := direct.New(func(_ context.Context, _ queue.Message) error {
		<-release

		return nil
	}, 1, zap.NewNop().Sugar())

	// Send must return immediately even though the regeneration is parked
	start := time.Now()

	require.NoError(t, directQueue.Send(context.Background(), queue.Message{
		ID: uuid.NewString(), Key: "/blog/a", URL: "/blog/a",
	}))
	require.NoError(t, directQueue.Send(context.Background(), queue.Message{
		ID: uuid.NewString(), Key: "/blog/b", URL: "/blog/b",
	}))

	require.Less(t, time.Since(start), time.Second)
}
