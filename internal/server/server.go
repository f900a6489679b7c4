package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brpaz/echozap"
	"github.com/go-chi/render"
	"github.com/labstack/echo/v4"
	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/regenlabs/regen/internal/cache/noop"
	"github.com/regenlabs/regen/internal/convert"
	queuepkg "github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/queue/direct"
	"github.com/regenlabs/regen/internal/refresh"
	"github.com/regenlabs/regen/internal/server/assetproxy"
	"github.com/regenlabs/regen/internal/server/fail"
	"github.com/regenlabs/regen/internal/server/pipeline"
	rulepkg "github.com/regenlabs/regen/internal/server/rule"
	sinkpkg "github.com/regenlabs/regen/internal/server/sink"
	"go.uber.org/zap"
)

// Server owns the ingress listener, converts each inbound request into the
// normalized model, runs it through the pipeline and writes the outcome back
// to the transport. The connection is handed back to the transport exactly
// once per request, on every path.
type Server struct {
	listener   net.Listener
	httpServer *http.Server

	converter          convert.Converter
	cache              cachepkg.Cache
	queue              queuepkg.Queue
	rules              rulepkg.Rules
	render             pipeline.Handler
	sealer             *refresh.Sealer
	workers            int
	assetProxy         *assetproxy.AssetProxy
	internalHTTPClient *http.Client
	logger             *zap.SugaredLogger

	pipe *pipeline.Pipeline

	// regenerations delivers messages accepted by the revalidation endpoint:
	// always local, regardless of the transport the pipeline sends through
	regenerations *direct.Direct

	shutdownOnce sync.Once
}

func New(addr string, opts ...Option) (*Server, error) {
	server := &Server{
		internalHTTPClient: http.DefaultClient,
	}

	// Listen on the desired port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	// Apply options
	for _, opt := range opts {
		opt(server)
	}

	// Apply defaults
	if server.converter == nil {
		server.converter = convert.NewHTTP()
	}

	if server.cache == nil {
		server.cache = noop.New()
	}

	if server.logger == nil {
		server.logger = zap.NewNop().Sugar()
	}

	if server.sealer == nil {
		server.sealer, err = refresh.NewSealer("")
		if err != nil {
			_ = listener.Close()

			return nil, err
		}
	}

	// Sanity check
	if server.render == nil {
		_ = listener.Close()

		return nil, fmt.Errorf("a render handler is required")
	}

	server.pipe = pipeline.New(server.converter, server.cache, server.rules,
		server.render, server.sealer, server.logger)

	// Regenerations always run detached from the connection that requested
	// them, bounded by the worker budget and collapsed per key
	server.regenerations = direct.New(server.pipe.Regenerate, server.workers, server.logger)

	if server.queue == nil {
		server.queue = server.regenerations
	}
	server.pipe.SetQueue(server.queue)

	// Configure routes
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echozap.ZapLogger(server.logger.Desugar()))

	e.GET("/_regen/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "healthy")
	})
	e.POST("/_regen/revalidate", server.handleRevalidate)

	if server.assetProxy != nil {
		e.Any("/_assets/*", server.handleAssets)
	}

	e.Any("/*", server.handleRender)

	server.httpServer = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 30 * time.Second,
	}

	return server, nil
}

func (server *Server) Addr() string {
	return strings.ReplaceAll(server.listener.Addr().String(), "[::]", "127.0.0.1")
}

func (server *Server) Run(ctx context.Context) error {
	server.logger.Infof("listening on %s", server.Addr())

	if server.assetProxy != nil {
		server.assetProxy.Start()
	}

	go func() {
		<-ctx.Done()

		server.Shutdown()
	}()

	if err := server.httpServer.Serve(server.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops accepting new connections and releases the listener, along
// with the asset proxy side service. It is safe to call more than once.
func (server *Server) Shutdown() {
	server.shutdownOnce.Do(func() {
		_ = server.httpServer.Close()

		if server.assetProxy != nil {
			server.assetProxy.Shutdown()
		}
	})
}

func (server *Server) handleRender(c echo.Context) error {
	internalRequest, err := server.converter.FromHost(c.Request())
	if err != nil {
		if errors.Is(err, convert.ErrMalformedRequest) {
			return fail.Fail(c, http.StatusBadRequest, "failed to convert request: %v", err)
		}

		return fail.Fail(c, http.StatusInternalServerError, "failed to convert request: %v", err)
	}

	sink := sinkpkg.NewHTTP(c.Response())

	if err := server.pipe.Handle(c.Request().Context(), internalRequest, sink); err != nil {
		if sink.HeadersSent() {
			// The status code cannot be changed anymore; cut the stream short
			// and let the transport signal the truncation
			server.logger.Warnf("request for %q failed mid-stream: %v",
				internalRequest.URL.Path, err)

			return nil
		}

		return fail.Fail(c, http.StatusInternalServerError, "request for %q failed: %v",
			internalRequest.URL.Path, err)
	}

	return nil
}

func (server *Server) handleRevalidate(c echo.Context) error {
	var message queuepkg.Message

	if err := render.DecodeJSON(c.Request().Body, &message); err != nil {
		return fail.Fail(c, http.StatusBadRequest, "failed to decode revalidation message: %v", err)
	}

	// Only a grant matching the message's key authorizes a forced render
	grant, err := server.sealer.Unseal(c.Request().Header.Get(refresh.Header))
	if err != nil {
		return fail.Fail(c, http.StatusUnauthorized, "failed to validate the refresh credential: %v", err)
	}

	if grant.Key != message.Key {
		return fail.Fail(c, http.StatusUnauthorized, "refresh credential was issued for another key")
	}

	// The sender only learns that the message was accepted: the regeneration
	// itself runs in the background and outlives this connection
	if err := server.regenerations.Send(c.Request().Context(), message); err != nil {
		return fail.Fail(c, http.StatusInternalServerError, "failed to accept revalidation %s for key %q: %v",
			message.ID, message.Key, err)
	}

	return c.NoContent(http.StatusAccepted)
}

func (server *Server) handleAssets(c echo.Context) error {
	assetURL := fmt.Sprintf("http://%s/%s", server.assetProxy.Addr(),
		strings.TrimPrefix(c.Request().URL.Path, "/_assets/"))
	if rawQuery := c.Request().URL.RawQuery; rawQuery != "" {
		assetURL += "?" + rawQuery
	}

	assetRequest, err := http.NewRequestWithContext(c.Request().Context(), c.Request().Method,
		assetURL, c.Request().Body)
	if err != nil {
		return fail.Fail(c, http.StatusInternalServerError, "failed to create asset request: %v", err)
	}

	response, err := server.internalHTTPClient.Do(assetRequest)
	if err != nil {
		return fail.Fail(c, http.StatusBadGateway, "failed to reach the asset proxy: %v", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	return c.Stream(response.StatusCode, response.Header.Get("Content-Type"), response.Body)
}
