package origin

import "net/http"

type Option func(origin *Origin)

// WithHTTPClient injects the client used to reach the upstream. The render
// path receives its HTTP capability explicitly instead of mutating any
// process-global transport state.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(origin *Origin) {
		origin.httpClient = httpClient
	}
}
