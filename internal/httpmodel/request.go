// Package httpmodel contains the normalized request/response representation
// that the rest of the pipeline operates on, independently of the host
// transport that produced it.
package httpmodel

import (
	"io"
	"net/http"
	"net/url"
)

// Request is a host-independent HTTP request. It is constructed once by a
// converter and not mutated afterwards.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   io.ReadCloser
}
