package httpqueue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/queue/httpqueue"
	"github.com/regenlabs/regen/internal/refresh"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	sealer, err := refresh.NewSealer("such secret")
	require.NoError(t, err)

	var receivedMessage queue.Message
	var receivedGrant refresh.Grant

	endpoint := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, json.NewDecoder(request.Body).Decode(&receivedMessage))

		receivedGrant, err = sealer.Unseal(request.Header.Get(refresh.Header))
		require.NoError(t, err)

		writer.WriteHeader(http.StatusAccepted)
	}))
	defer endpoint.Close()

	httpQueue := httpqueue.New(endpoint.URL, sealer,
		httpqueue.WithHTTPClient(endpoint.Client()))

	message := queue.Message{
		ID:  uuid.NewString(),
		Key: "/blog/a|lang=en",
		URL: "/blog/a?lang=en",
	}

	require.NoError(t, httpQueue.Send(context.Background(), message))

	// The message arrives intact and carries a grant for its own key
	require.Equal(t, message, receivedMessage)
	require.Equal(t, message.Key, receivedGrant.Key)
}

func TestSendFailsOnUnexpectedStatus(t *testing.T) {
	sealer, err := refresh.NewSealer("such secret")
	require.NoError(t, err)

	endpoint := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer endpoint.Close()

	httpQueue := httpqueue.New(endpoint.URL, sealer)

	err = httpQueue.Send(context.Background(), queue.Message{
		ID: uuid.NewString(), Key: "/blog/a", URL: "/blog/a",
	})
	require.Error(t, err)
}
