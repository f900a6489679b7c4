// Package pipeline binds the converter, the incremental cache and the
// revalidation queue under a single handler call: fresh entries are served
// from the cache, stale entries are served immediately while a regeneration
// is enqueued, misses are rendered synchronously.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/regenlabs/regen/internal/convert"
	"github.com/regenlabs/regen/internal/httpmodel"
	queuepkg "github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/refresh"
	rulepkg "github.com/regenlabs/regen/internal/server/rule"
	"github.com/regenlabs/regen/internal/server/sink"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler is the render function: it receives a normalized request and must
// call the sink's WriteHeaders exactly once, then either complete or call
// OnFinish.
type Handler func(ctx context.Context, request *httpmodel.Request, s sink.Sink) error

type Pipeline struct {
	converter convert.Converter
	cache     cachepkg.Cache
	queue     queuepkg.Queue
	rules     rulepkg.Rules
	render    Handler
	sealer    *refresh.Sealer
	logger    *zap.SugaredLogger
}

func New(
	converter convert.Converter,
	cache cachepkg.Cache,
	rules rulepkg.Rules,
	render Handler,
	sealer *refresh.Sealer,
	logger *zap.SugaredLogger,
) *Pipeline {
	return &Pipeline{
		converter: converter,
		cache:     cache,
		rules:     rules,
		render:    render,
		sealer:    sealer,
		logger:    logger,
	}
}

// SetQueue installs the revalidation queue. It is set after construction
// because an in-process queue regenerates through this very pipeline.
func (pipe *Pipeline) SetQueue(queue queuepkg.Queue) {
	pipe.queue = queue
}

func (pipe *Pipeline) Handle(ctx context.Context, request *httpmodel.Request, s sink.Sink) error {
	matchedRule := pipe.rules.Get(request.URL.Path)
	if matchedRule == nil {
		// The route is not cacheable, hand the sink straight to the renderer
		// so that it can stream
		return pipe.render(ctx, request, s)
	}

	key, err := matchedRule.CacheKey(request.URL)
	if err != nil {
		return fmt.Errorf("failed to compute the cache key for %q: %w", request.URL.Path, err)
	}

	// A valid refresh grant for this key forces a fresh render,
	// bypassing the cache read
	if pipe.refreshForced(request, key) {
		result, err := pipe.renderAndStore(ctx, request, key, true)
		if err != nil {
			return err
		}

		return pipe.converter.ToHost(result, s)
	}

	entry, err := pipe.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cachepkg.ErrCorrupted) {
			// Drop the corrupt entry so that readers don't keep tripping over it
			if deleteErr := pipe.cache.Delete(ctx, key); deleteErr != nil {
				pipe.logger.Warnf("failed to delete corrupted cache entry %q: %v",
					key, deleteErr)
			}
		} else if !errors.Is(err, cachepkg.ErrNotFound) {
			return fmt.Errorf("failed to get cache entry %q: %w", key, err)
		}

		// A miss is not an error state: render synchronously and serve
		result, renderErr := pipe.renderAndStore(ctx, request, key, false)
		if renderErr != nil {
			return renderErr
		}

		return pipe.converter.ToHost(result, s)
	}

	result, err := httpmodel.UnmarshalResult(entry.Value)
	if err != nil {
		// Same treatment as a corrupted store read
		if deleteErr := pipe.cache.Delete(ctx, key); deleteErr != nil {
			pipe.logger.Warnf("failed to delete undecodable cache entry %q: %v", key, deleteErr)
		}

		freshResult, renderErr := pipe.renderAndStore(ctx, request, key, false)
		if renderErr != nil {
			return renderErr
		}

		return pipe.converter.ToHost(freshResult, s)
	}

	if time.Since(entry.LastModified) > matchedRule.RevalidateAfter() {
		// Serve the stale copy right away and regenerate in the background;
		// the response never waits on the enqueue's completion
		message := queuepkg.Message{
			ID:  uuid.NewString(),
			Key: key,
			URL: request.URL.RequestURI(),
		}

		if sendErr := pipe.queue.Send(ctx, message); sendErr != nil {
			pipe.logger.Warnf("failed to enqueue revalidation %s for key %q: %v",
				message.ID, key, sendErr)
		}
	}

	return pipe.converter.ToHost(result, s)
}

// Regenerate performs one forced regeneration pass. It is invoked by the
// revalidation queue's delivery mechanism and is idempotent: the only side
// effect is an overwriting cache Set.
func (pipe *Pipeline) Regenerate(ctx context.Context, message queuepkg.Message) error {
	requestURL, err := url.ParseRequestURI(message.URL)
	if err != nil {
		return fmt.Errorf("failed to parse revalidation URL %q: %w", message.URL, err)
	}

	request := &httpmodel.Request{
		Method: http.MethodGet,
		URL:    requestURL,
		Header: http.Header{},
	}

	_, err = pipe.renderAndStore(ctx, request, message.Key, true)

	return err
}

func (pipe *Pipeline) renderAndStore(
	ctx context.Context,
	request *httpmodel.Request,
	key string,
	background bool,
) (*httpmodel.Result, error) {
	bufferSink := sink.NewBuffer()

	if err := pipe.render(ctx, request, bufferSink); err != nil {
		return nil, fmt.Errorf("render of %q failed: %w", key, err)
	}

	if !bufferSink.HeadersSent() {
		return nil, fmt.Errorf("render of %q completed without writing a response", key)
	}

	result := bufferSink.Result()

	// Don't overwrite a servable entry with an error page
	if result.Prelude.StatusCode >= http.StatusInternalServerError {
		return result, nil
	}

	payload, err := httpmodel.MarshalResult(result)
	if err != nil {
		return nil, err
	}

	// A failed write only means the cache stays stale until a future
	// attempt; the render itself succeeded, so the result is still served
	if err := pipe.cache.Set(ctx, key, payload, background); err != nil {
		pipe.logger.Warnf("failed to store cache entry %q: %v", key, err)
	}

	return result, nil
}

func (pipe *Pipeline) refreshForced(request *httpmodel.Request, key string) bool {
	sealedGrant := request.Header.Get(refresh.Header)
	if sealedGrant == "" {
		return false
	}

	grant, err := pipe.sealer.Unseal(sealedGrant)
	if err != nil {
		// Fail closed: an invalid credential demotes the request
		// to a normal cacheable one
		pipe.logger.Warnf("rejecting refresh credential: %v", err)

		return false
	}

	return grant.Key == key
}
