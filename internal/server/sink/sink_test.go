package sink_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regenlabs/regen/internal/httpmodel"
	"github.com/regenlabs/regen/internal/server/sink"
	"github.com/stretchr/testify/require"
)

func TestHTTPWritesPreludeAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	httpSink := sink.NewHTTP(recorder)

	require.False(t, httpSink.HeadersSent())

	bodyWriter, err := httpSink.WriteHeaders(httpmodel.Prelude{
		StatusCode: http.StatusTeapot,
		Header: http.Header{
			"Content-Type": []string{"text/plain"},
		},
	})
	require.NoError(t, err)
	require.True(t, httpSink.HeadersSent())
	require.Equal(t, http.StatusTeapot, httpSink.StatusCode())

	_, err = bodyWriter.Write([]byte("Hello, World!"))
	require.NoError(t, err)
	require.NoError(t, httpSink.OnFinish())

	require.Equal(t, http.StatusTeapot, recorder.Code)
	require.Equal(t, "text/plain", recorder.Header().Get("Content-Type"))
	require.Equal(t, "Hello, World!", recorder.Body.String())
}

func TestHTTPRejectsSecondPrelude(t *testing.T) {
	httpSink := sink.NewHTTP(httptest.NewRecorder())

	_, err := httpSink.WriteHeaders(httpmodel.Prelude{StatusCode: http.StatusOK})
	require.NoError(t, err)

	// The status code cannot be changed once the prelude was flushed
	_, err = httpSink.WriteHeaders(httpmodel.Prelude{StatusCode: http.StatusInternalServerError})
	require.ErrorIs(t, err, sink.ErrHeadersSent)
	require.Equal(t, http.StatusOK, httpSink.StatusCode())
}

func TestBufferCapturesResult(t *testing.T) {
	bufferSink := sink.NewBuffer()

	bodyWriter, err := bufferSink.WriteHeaders(httpmodel.Prelude{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"X-Rendered-By": []string{"test"},
		},
	})
	require.NoError(t, err)

	_, err = bodyWriter.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, bufferSink.OnFinish())

	result := bufferSink.Result()
	require.Equal(t, http.StatusOK, result.Prelude.StatusCode)
	require.Equal(t, "test", result.Prelude.Header.Get("X-Rendered-By"))
	require.Equal(t, []byte("payload"), result.Body)
	require.False(t, result.Streaming())
}

func TestBufferRejectsSecondPrelude(t *testing.T) {
	bufferSink := sink.NewBuffer()

	_, err := bufferSink.WriteHeaders(httpmodel.Prelude{StatusCode: http.StatusOK})
	require.NoError(t, err)

	_, err = bufferSink.WriteHeaders(httpmodel.Prelude{StatusCode: http.StatusOK})
	require.ErrorIs(t, err, sink.ErrHeadersSent)
}
