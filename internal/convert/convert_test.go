package convert_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/regenlabs/regen/internal/convert"
	"github.com/regenlabs/regen/internal/httpmodel"
	"github.com/regenlabs/regen/internal/server/sink"
	"github.com/stretchr/testify/require"
)

func TestFromHost(t *testing.T) {
	converter := convert.NewHTTP()

	request := httptest.NewRequest(http.MethodGet, "/blog/a?lang=en", nil)
	request.Header.Set("Accept-Language", "en")

	internalRequest, err := converter.FromHost(request)
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, internalRequest.Method)
	require.Equal(t, "/blog/a", internalRequest.URL.Path)
	require.Equal(t, "lang=en", internalRequest.URL.RawQuery)
	require.Equal(t, "en", internalRequest.Header.Get("Accept-Language"))

	// The internal request owns its headers, mutating them
	// should not affect the host request
	internalRequest.Header.Set("Accept-Language", "de")
	require.Equal(t, "en", request.Header.Get("Accept-Language"))
}

func TestFromHostMalformed(t *testing.T) {
	converter := convert.NewHTTP()

	_, err := converter.FromHost(&http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{},
	})
	require.ErrorIs(t, err, convert.ErrMalformedRequest)
}

func TestToHostBuffered(t *testing.T) {
	converter := convert.NewHTTP()
	recorder := httptest.NewRecorder()

	err := converter.ToHost(&httpmodel.Result{
		Prelude: httpmodel.Prelude{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Content-Type": []string{"text/html"},
			},
		},
		Body: []byte("<h1>A</h1>"),
	}, sink.NewHTTP(recorder))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/html", recorder.Header().Get("Content-Type"))
	require.Equal(t, "<h1>A</h1>", recorder.Body.String())
}

func TestToHostStreaming(t *testing.T) {
	converter := convert.NewHTTP()
	recorder := httptest.NewRecorder()

	err := converter.ToHost(&httpmodel.Result{
		Prelude: httpmodel.Prelude{
			StatusCode: http.StatusOK,
		},
		BodyReader: io.NopCloser(strings.NewReader("chunked body")),
	}, sink.NewHTTP(recorder))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "chunked body", recorder.Body.String())
}
