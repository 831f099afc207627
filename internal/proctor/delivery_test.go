package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vigilexam/vigil-backend/internal/model"
)

func TestConfirmedChannelMapsLifecycleRejection(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"accepted", http.StatusCreated, nil},
		{"attempt closed", http.StatusBadRequest, ErrAttemptClosed},
		{"server error", http.StatusInternalServerError, errors.New("any")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			ch := NewConfirmedChannel(srv.URL, "a-1", nil)
			err := ch.Deliver(context.Background(), []model.IncomingEvent{{EventType: model.EventTabHidden}})

			switch {
			case tt.want == nil && err != nil:
				t.Fatalf("deliver: %v", err)
			case tt.want != nil && errors.Is(tt.want, ErrAttemptClosed) && !errors.Is(err, ErrAttemptClosed):
				t.Fatalf("err = %v, want ErrAttemptClosed", err)
			case tt.want != nil && err == nil:
				t.Fatal("deliver succeeded, want error")
			}
		})
	}
}

func TestConfirmedChannelSendsBatchWithMetadata(t *testing.T) {
	got := make(chan model.LogEventsRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.LogEventsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		got <- req
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewConfirmedChannel(srv.URL, "a-1", map[string]interface{}{"client": "test"})
	if err := ch.Deliver(context.Background(), []model.IncomingEvent{
		{ID: "e-1", EventType: model.EventFocusLost},
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	req := <-got
	if len(req.Events) != 1 || req.Events[0].ID != "e-1" {
		t.Fatalf("events = %+v", req.Events)
	}
	if req.Metadata["client"] != "test" {
		t.Fatalf("batch metadata lost: %v", req.Metadata)
	}
}

func TestBestEffortChannelDeliversWithoutBlocking(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewBestEffortChannel(NewConfirmedChannel(srv.URL, "a-1", nil))
	if err := ch.Deliver(context.Background(), []model.IncomingEvent{{EventType: model.EventTabHidden}}); err != nil {
		t.Fatalf("best-effort deliver reported %v, want nil", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("best-effort send never reached the server")
	}
}

func TestBestEffortChannelSwallowsServerFailure(t *testing.T) {
	ch := NewBestEffortChannel(NewConfirmedChannel("http://127.0.0.1:0", "a-1", nil))
	if err := ch.Deliver(context.Background(), []model.IncomingEvent{{EventType: model.EventTabHidden}}); err != nil {
		t.Fatalf("unreachable server surfaced an error: %v", err)
	}
}
