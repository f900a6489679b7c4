// Package assetproxy is a small side service that fetches static assets from
// a dedicated upstream. It owns its own loopback listener and is started and
// stopped by the main server's lifecycle, never as a detached process; the
// main server talks to it over plain local HTTP.
package assetproxy

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type AssetProxy struct {
	listener   net.Listener
	httpServer *http.Server
	logger     *zap.SugaredLogger

	shutdownOnce sync.Once
}

func New(upstream string, logger *zap.SugaredLogger) (*AssetProxy, error) {
	upstreamURL, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset upstream URL %q: %w", upstream, err)
	}

	// Loopback only: the side service is an internal collaborator,
	// not an ingress
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	reverseProxy := httputil.NewSingleHostReverseProxy(upstreamURL)
	reverseProxy.ErrorHandler = func(writer http.ResponseWriter, request *http.Request, err error) {
		logger.Warnf("failed to proxy asset request %q: %v", request.URL.Path, err)

		writer.WriteHeader(http.StatusBadGateway)
	}

	return &AssetProxy{
		listener: listener,
		httpServer: &http.Server{
			Handler: reverseProxy,
		},
		logger: logger,
	}, nil
}

func (proxy *AssetProxy) Addr() string {
	return strings.ReplaceAll(proxy.listener.Addr().String(), "[::]", "127.0.0.1")
}

// Start begins serving in the background. The caller stops the service
// through Shutdown.
func (proxy *AssetProxy) Start() {
	proxy.logger.Infof("asset proxy listening on %s", proxy.Addr())

	go func() {
		_ = proxy.httpServer.Serve(proxy.listener)
	}()
}

func (proxy *AssetProxy) Shutdown() {
	proxy.shutdownOnce.Do(func() {
		_ = proxy.httpServer.Close()
	})
}
