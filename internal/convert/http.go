package convert

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/regenlabs/regen/internal/httpmodel"
	"github.com/regenlabs/regen/internal/server/sink"
)

// HTTP converts between net/http requests/responses and the normalized model.
type HTTP struct{}

func NewHTTP() *HTTP {
	return &HTTP{}
}

func (converter *HTTP) FromHost(request *http.Request) (*httpmodel.Request, error) {
	if request.URL == nil || request.URL.Path == "" {
		return nil, fmt.Errorf("%w: request carries no URL", ErrMalformedRequest)
	}

	// Re-parse the escaped path so that requests that net/http let through
	// with an invalid encoding fail here instead of deep inside the pipeline
	if _, err := url.PathUnescape(request.URL.EscapedPath()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	requestURL := *request.URL

	return &httpmodel.Request{
		Method: method,
		URL:    &requestURL,
		Header: request.Header.Clone(),
		Body:   request.Body,
	}, nil
}

func (converter *HTTP) ToHost(result *httpmodel.Result, s sink.Sink) error {
	bodyWriter, err := s.WriteHeaders(result.Prelude)
	if err != nil {
		return err
	}

	if result.Streaming() {
		// Forward body chunks as they arrive
		if _, err := io.Copy(bodyWriter, result.BodyReader); err != nil {
			_ = result.BodyReader.Close()

			return fmt.Errorf("failed to stream response body: %w", err)
		}

		if err := result.BodyReader.Close(); err != nil {
			return fmt.Errorf("failed to close response body stream: %w", err)
		}
	} else if len(result.Body) != 0 {
		if _, err := bodyWriter.Write(result.Body); err != nil {
			return fmt.Errorf("failed to write response body: %w", err)
		}
	}

	return s.OnFinish()
}
