package sink

import (
	"bytes"
	"io"

	"github.com/regenlabs/regen/internal/httpmodel"
)

// Buffer captures a rendered response in memory so that it can be stored in
// the incremental cache and replayed to the transport afterwards.
type Buffer struct {
	prelude      httpmodel.Prelude
	wroteHeaders bool
	body         bytes.Buffer
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (sink *Buffer) WriteHeaders(prelude httpmodel.Prelude) (io.Writer, error) {
	if sink.wroteHeaders {
		return nil, ErrHeadersSent
	}
	sink.wroteHeaders = true
	sink.prelude = prelude

	return &sink.body, nil
}

func (sink *Buffer) OnFinish() error {
	return nil
}

func (sink *Buffer) HeadersSent() bool {
	return sink.wroteHeaders
}

// Result returns the captured response. It is only meaningful once
// WriteHeaders was called.
func (sink *Buffer) Result() *httpmodel.Result {
	return &httpmodel.Result{
		Prelude: sink.prelude,
		Body:    bytes.Clone(sink.body.Bytes()),
	}
}
