// Package convert translates between host-native requests/responses and the
// normalized model used by the pipeline.
package convert

import (
	"errors"
	"net/http"

	"github.com/regenlabs/regen/internal/httpmodel"
	"github.com/regenlabs/regen/internal/server/sink"
)

var ErrMalformedRequest = errors.New("malformed host request")

// Converter is the boundary between a host transport and the pipeline.
// FromHost fails with an error wrapping ErrMalformedRequest when the host
// payload cannot be normalized. ToHost performs exactly one terminal write
// on the sink.
type Converter interface {
	FromHost(request *http.Request) (*httpmodel.Request, error)
	ToHost(result *httpmodel.Result, s sink.Sink) error
}
