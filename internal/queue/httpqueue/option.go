package httpqueue

import "net/http"

type Option func(httpQueue *HTTPQueue)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(httpQueue *HTTPQueue) {
		httpQueue.httpClient = httpClient
	}
}
