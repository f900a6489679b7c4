package server

import (
	"net/http"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	queuepkg "github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/refresh"
	"github.com/regenlabs/regen/internal/server/assetproxy"
	"github.com/regenlabs/regen/internal/server/pipeline"
	rulepkg "github.com/regenlabs/regen/internal/server/rule"
	"go.uber.org/zap"
)

type Option func(server *Server)

func WithCache(cache cachepkg.Cache) Option {
	return func(server *Server) {
		server.cache = cache
	}
}

func WithQueue(queue queuepkg.Queue) Option {
	return func(server *Server) {
		server.queue = queue
	}
}

func WithRules(rules rulepkg.Rules) Option {
	return func(server *Server) {
		server.rules = rules
	}
}

func WithRenderHandler(render pipeline.Handler) Option {
	return func(server *Server) {
		server.render = render
	}
}

func WithSealer(sealer *refresh.Sealer) Option {
	return func(server *Server) {
		server.sealer = sealer
	}
}

// WithWorkers bounds the number of concurrent regenerations performed by the
// default in-process queue.
func WithWorkers(workers int) Option {
	return func(server *Server) {
		server.workers = workers
	}
}

func WithAssetProxy(assetProxy *assetproxy.AssetProxy) Option {
	return func(server *Server) {
		server.assetProxy = assetProxy
	}
}

func WithInternalHTTPClient(httpClient *http.Client) Option {
	return func(server *Server) {
		server.internalHTTPClient = httpClient
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}
