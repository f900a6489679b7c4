// Package sink abstracts the write side of a response so that the render
// handler can produce both buffered and streaming responses through the same
// interface.
package sink

import (
	"errors"
	"io"

	"github.com/regenlabs/regen/internal/httpmodel"
)

var ErrHeadersSent = errors.New("response prelude was already written")

// Sink accepts exactly one response per request: a single WriteHeaders call
// followed by body writes and an optional OnFinish. A second WriteHeaders
// call fails with ErrHeadersSent.
type Sink interface {
	WriteHeaders(prelude httpmodel.Prelude) (io.Writer, error)
	OnFinish() error
}
