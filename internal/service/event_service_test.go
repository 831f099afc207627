package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

func newTestEventService(t *testing.T) (*EventService, *AttemptService, *fakeEventSink, *model.Attempt) {
	t.Helper()
	attempts, _, _ := newTestAttemptService(30 * time.Minute)
	sink := &fakeEventSink{}
	svc := NewEventService(attempts, sink, &fakeEventReader{}, zerolog.Nop())

	a, err := attempts.Start(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return svc, attempts, sink, a
}

func TestLogAcceptsBatchAndStampsRecordedAt(t *testing.T) {
	svc, _, sink, a := newTestEventService(t)

	clientTime := time.Date(2026, 8, 29, 8, 59, 0, 0, time.UTC)
	count, err := svc.Log(context.Background(), a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{
			{ID: uuid.New().String(), EventType: model.EventTabHidden, Timestamp: clientTime},
			{ID: uuid.New().String(), EventType: model.EventTimerStarted},
		},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	if len(sink.enqueued) != 2 {
		t.Fatalf("enqueued %d", len(sink.enqueued))
	}
	first := sink.enqueued[0]
	if !first.OccurredAt.Equal(clientTime) {
		t.Fatalf("client timestamp lost: %v", first.OccurredAt)
	}
	if first.RecordedAt.IsZero() {
		t.Fatal("recorded_at not stamped")
	}
	// Missing client timestamp falls back to the server clock.
	if sink.enqueued[1].OccurredAt.IsZero() {
		t.Fatal("missing timestamp not defaulted")
	}
}

func TestLogPreservesClientIdempotencyKey(t *testing.T) {
	svc, _, sink, a := newTestEventService(t)

	clientID := uuid.New().String()
	_, err := svc.Log(context.Background(), a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{
			{ID: clientID, EventType: model.EventCopyAttempt},
			{ID: "not-a-uuid", EventType: model.EventFocusLost},
		},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	if sink.enqueued[0].ID.String() != clientID {
		t.Fatalf("client id replaced: %s", sink.enqueued[0].ID)
	}
	if sink.enqueued[1].ID == uuid.Nil {
		t.Fatal("unusable client id not replaced")
	}
}

func TestLogBumpsViolationTally(t *testing.T) {
	svc, _, sink, a := newTestEventService(t)

	_, err := svc.Log(context.Background(), a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{
			{EventType: model.EventTabHidden},  // violation
			{EventType: model.EventTabVisible}, // not
			{EventType: model.EventPasteAttempt}, // violation
		},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if sink.violations != 2 {
		t.Fatalf("violations = %d, want 2", sink.violations)
	}
	if sink.published != 3 {
		t.Fatalf("published = %d, want 3", sink.published)
	}
}

func TestLogMergesBatchMetadataUnderEventMetadata(t *testing.T) {
	svc, _, sink, a := newTestEventService(t)

	_, err := svc.Log(context.Background(), a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{
			{EventType: model.EventTabHidden, Metadata: map[string]interface{}{"source": "event"}},
		},
		Metadata: map[string]interface{}{"source": "batch", "agent": "browser"},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	meta := sink.enqueued[0].Metadata
	if meta["source"] != "event" {
		t.Fatalf("event metadata overridden: %v", meta["source"])
	}
	if meta["agent"] != "browser" {
		t.Fatalf("batch metadata dropped: %v", meta)
	}
}

func TestLogRejectsUnknownEventType(t *testing.T) {
	svc, _, sink, a := newTestEventService(t)

	_, err := svc.Log(context.Background(), a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{{EventType: "MIND_READ"}},
	})
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("err = %v, want ErrUnknownEventType", err)
	}
	if len(sink.enqueued) != 0 {
		t.Fatal("rejected batch partially enqueued")
	}
}

func TestLogRejectsTerminalAttempt(t *testing.T) {
	svc, attempts, sink, a := newTestEventService(t)
	ctx := context.Background()

	if _, err := attempts.Submit(ctx, a.AttemptID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := svc.Log(ctx, a.AttemptID, &model.LogEventsRequest{
		Events: []model.IncomingEvent{{EventType: model.EventTabHidden}},
	})
	var conflict *StateConflictError
	if !errors.As(err, &conflict) || conflict.Reason != ConflictSubmitted {
		t.Fatalf("err = %v, want submitted conflict", err)
	}
	if len(sink.enqueued) != 0 {
		t.Fatal("event accepted past terminal state")
	}
}
