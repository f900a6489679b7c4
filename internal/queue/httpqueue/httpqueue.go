// Package httpqueue delivers revalidation messages over HTTP to a
// regeneration endpoint, which may live in another process.
package httpqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/regenlabs/regen/internal/queue"
	"github.com/regenlabs/regen/internal/refresh"
)

type HTTPQueue struct {
	endpoint   string
	sealer     *refresh.Sealer
	httpClient *http.Client
}

func New(endpoint string, sealer *refresh.Sealer, opts ...Option) *HTTPQueue {
	httpQueue := &HTTPQueue{
		endpoint:   endpoint,
		sealer:     sealer,
		httpClient: http.DefaultClient,
	}

	// Apply options
	for _, opt := range opts {
		opt(httpQueue)
	}

	return httpQueue
}

func (httpQueue *HTTPQueue) Send(ctx context.Context, message queue.Message) error {
	bodyBytes, err := json.Marshal(&message)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, httpQueue.endpoint,
		bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	// Authenticate the regeneration so that it bypasses cache-read shortcuts
	// on the receiving side
	sealedGrant, err := httpQueue.sealer.Seal(refresh.Grant{Key: message.Key})
	if err != nil {
		return err
	}

	request.Header.Set(refresh.Header, sealedGrant)

	// Perform request
	response, err := httpQueue.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	// Handle unexpected status code
	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected HTTP %d", response.StatusCode)
	}

	return nil
}
