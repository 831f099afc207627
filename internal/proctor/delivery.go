package proctor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vigilexam/vigil-backend/internal/model"
)

// ErrAttemptClosed is returned when the server rejects a delivery
// because the attempt reached a terminal state. Pending events for a
// closed attempt will never be accepted and should be discarded.
var ErrAttemptClosed = errors.New("attempt is no longer in progress")

// DeliveryChannel sends a batch of events to the server ledger.
type DeliveryChannel interface {
	Deliver(ctx context.Context, events []model.IncomingEvent) error
}

// ConfirmedChannel posts events over HTTP and reports failures so the
// queue can retry. This is the normal in-session path.
type ConfirmedChannel struct {
	client    *http.Client
	baseURL   string
	attemptID string
	metadata  map[string]interface{}
}

// NewConfirmedChannel creates a ConfirmedChannel. metadata rides along
// with every batch (user agent, client version and the like).
func NewConfirmedChannel(baseURL, attemptID string, metadata map[string]interface{}) *ConfirmedChannel {
	return &ConfirmedChannel{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   baseURL,
		attemptID: attemptID,
		metadata:  metadata,
	}
}

func (c *ConfirmedChannel) Deliver(ctx context.Context, events []model.IncomingEvent) error {
	body, err := json.Marshal(model.LogEventsRequest{Events: events, Metadata: c.metadata})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/attempt/%s/event", c.baseURL, c.attemptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// Lifecycle rejection: the attempt is terminal. Retrying cannot
		// succeed.
		return ErrAttemptClosed
	default:
		return fmt.Errorf("event delivery failed: status %d", resp.StatusCode)
	}
}

// BestEffortChannel fires the same POST without waiting for the result,
// on a detached context. Used during teardown when the session cannot
// block on a response, like a beacon.
type BestEffortChannel struct {
	inner *ConfirmedChannel
}

// NewBestEffortChannel wraps a ConfirmedChannel for fire-and-forget use.
func NewBestEffortChannel(inner *ConfirmedChannel) *BestEffortChannel {
	return &BestEffortChannel{inner: inner}
}

func (c *BestEffortChannel) Deliver(_ context.Context, events []model.IncomingEvent) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.inner.Deliver(ctx, events)
	}()
	return nil
}
