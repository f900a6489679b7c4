package sink

import (
	"io"
	"net/http"

	"github.com/regenlabs/regen/internal/httpmodel"
)

// HTTP adapts an http.ResponseWriter to the Sink interface, capturing the
// status code and guarding against a second prelude write.
type HTTP struct {
	writer       http.ResponseWriter
	wroteHeaders bool
	statusCode   int
}

func NewHTTP(writer http.ResponseWriter) *HTTP {
	return &HTTP{
		writer: writer,
	}
}

func (sink *HTTP) WriteHeaders(prelude httpmodel.Prelude) (io.Writer, error) {
	if sink.wroteHeaders {
		return nil, ErrHeadersSent
	}
	sink.wroteHeaders = true
	sink.statusCode = prelude.StatusCode

	for key, values := range prelude.Header {
		for _, value := range values {
			sink.writer.Header().Add(key, value)
		}
	}

	sink.writer.WriteHeader(prelude.StatusCode)

	return sink.writer, nil
}

func (sink *HTTP) OnFinish() error {
	if flusher, ok := sink.writer.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// HeadersSent reports whether the prelude already reached the transport,
// i.e. whether the status code can still be changed.
func (sink *HTTP) HeadersSent() bool {
	return sink.wroteHeaders
}

func (sink *HTTP) StatusCode() int {
	return sink.statusCode
}
