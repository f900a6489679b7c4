package httpmodel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Prelude is the part of a response that has to be emitted before any body
// bytes: the status code and the headers.
type Prelude struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
}

// Result is a host-independent HTTP response. It carries either a complete
// in-memory body or a body stream, never both.
type Result struct {
	Prelude Prelude

	Body       []byte
	BodyReader io.ReadCloser
}

func (result *Result) Streaming() bool {
	return result.BodyReader != nil
}

type envelope struct {
	Prelude Prelude `json:"prelude"`
	Body    []byte  `json:"body"`
}

// MarshalResult encodes a buffered result into the byte payload stored in the
// incremental cache.
func MarshalResult(result *Result) ([]byte, error) {
	if result.Streaming() {
		return nil, fmt.Errorf("refusing to marshal a streaming result")
	}

	return json.Marshal(&envelope{
		Prelude: result.Prelude,
		Body:    result.Body,
	})
}

// UnmarshalResult decodes a payload previously produced by MarshalResult.
func UnmarshalResult(payload []byte) (*Result, error) {
	var envelope envelope

	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	if envelope.Prelude.StatusCode == 0 {
		return nil, fmt.Errorf("cached result carries no status code")
	}

	return &Result{
		Prelude: envelope.Prelude,
		Body:    envelope.Body,
	}, nil
}
