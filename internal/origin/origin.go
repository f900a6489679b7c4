// Package origin is the shipped render handler: it renders a page by
// fetching it from an upstream origin server over an injected HTTP client.
package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/regenlabs/regen/internal/httpmodel"
	"github.com/regenlabs/regen/internal/server/sink"
)

// Headers that belong to a single connection and must not be forwarded.
//
//nolint:gochecknoglobals
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type Origin struct {
	upstreamURL *url.URL
	httpClient  *http.Client
}

func New(upstream string, opts ...Option) (*Origin, error) {
	upstreamURL, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL %q: %w", upstream, err)
	}

	origin := &Origin{
		upstreamURL: upstreamURL,
		httpClient:  http.DefaultClient,
	}

	// Apply options
	for _, opt := range opts {
		opt(origin)
	}

	return origin, nil
}

func (origin *Origin) Handle(ctx context.Context, request *httpmodel.Request, s sink.Sink) error {
	upstreamURL := *origin.upstreamURL
	upstreamURL.Path = request.URL.Path
	upstreamURL.RawQuery = request.URL.RawQuery

	upstreamRequest, err := http.NewRequestWithContext(ctx, request.Method,
		upstreamURL.String(), request.Body)
	if err != nil {
		return fmt.Errorf("failed to create upstream request: %w", err)
	}

	upstreamRequest.Header = filterHeaders(request.Header)

	response, err := origin.httpClient.Do(upstreamRequest)
	if err != nil {
		return fmt.Errorf("failed to fetch %q from the upstream: %w", request.URL.Path, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	bodyWriter, err := s.WriteHeaders(httpmodel.Prelude{
		StatusCode: response.StatusCode,
		Header:     filterHeaders(response.Header),
	})
	if err != nil {
		return err
	}

	if _, err := io.Copy(bodyWriter, response.Body); err != nil {
		return fmt.Errorf("failed to forward upstream response body: %w", err)
	}

	return s.OnFinish()
}

func filterHeaders(header http.Header) http.Header {
	filtered := header.Clone()

	for _, hopByHopHeader := range hopByHopHeaders {
		filtered.Del(hopByHopHeader)
	}

	return filtered
}
