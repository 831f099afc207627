package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// ErrUnknownEventType is returned when an incoming event's type falls
// outside the closed enumeration.
var ErrUnknownEventType = errors.New("unknown event type")

// AttemptGate is the slice of the lifecycle state machine that ingestion
// paths consult before touching attempt-scoped data.
type AttemptGate interface {
	Get(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	RequireInProgress(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
}

// EventSink accepts gated events into the durable ingestion pipeline.
type EventSink interface {
	Enqueue(ctx context.Context, events []*model.Event) error
	BumpViolations(ctx context.Context, attemptID uuid.UUID, n int64) error
	ViolationCount(ctx context.Context, attemptID uuid.UUID) (int64, error)
	Publish(ctx context.Context, attemptID uuid.UUID, events []*model.Event)
}

// EventReader reads the persisted ledger for audit.
type EventReader interface {
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Event, error)
}

// EventService gates event ingestion on the attempt lifecycle and serves
// audit reads. The ledger itself is append-only; duplicates from
// at-least-once client delivery are collapsed by the client-assigned id
// at persistence time.
type EventService struct {
	gate   AttemptGate
	sink   EventSink
	reader EventReader
	log    zerolog.Logger
	now    func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(gate AttemptGate, sink EventSink, reader EventReader, log zerolog.Logger) *EventService {
	return &EventService{
		gate:   gate,
		sink:   sink,
		reader: reader,
		log:    log.With().Str("component", "event_service").Logger(),
		now:    time.Now,
	}
}

// Log accepts a batch of client events for an IN_PROGRESS attempt. Each
// event gets the server-recorded timestamp that defines audit order;
// batch-level metadata is merged under each event's own metadata.
// Returns the number of accepted events.
func (s *EventService) Log(ctx context.Context, attemptID uuid.UUID, req *model.LogEventsRequest) (int, error) {
	if _, err := s.gate.RequireInProgress(ctx, attemptID); err != nil {
		return 0, err
	}

	now := s.now()
	events := make([]*model.Event, 0, len(req.Events))
	var violations int64

	for _, in := range req.Events {
		if !in.EventType.Known() {
			return 0, fmt.Errorf("%w: %s", ErrUnknownEventType, in.EventType)
		}

		id, err := uuid.Parse(in.ID)
		if err != nil {
			// No usable idempotency key; accept the event anyway.
			id = uuid.New()
		}

		occurred := in.Timestamp
		if occurred.IsZero() {
			occurred = now
		}

		meta := make(map[string]interface{}, len(req.Metadata)+len(in.Metadata))
		for k, v := range req.Metadata {
			meta[k] = v
		}
		for k, v := range in.Metadata {
			meta[k] = v
		}

		e := &model.Event{
			ID:         id,
			AttemptID:  attemptID,
			EventType:  in.EventType,
			OccurredAt: occurred,
			RecordedAt: now,
			QuestionID: in.QuestionID,
			Metadata:   meta,
		}
		if e.EventType.Violation() {
			violations++
		}
		events = append(events, e)
	}

	if err := s.sink.Enqueue(ctx, events); err != nil {
		return 0, fmt.Errorf("enqueue events: %w", err)
	}

	if violations > 0 {
		if err := s.sink.BumpViolations(ctx, attemptID, violations); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Violation tally bump failed")
		}
	}

	s.sink.Publish(ctx, attemptID, events)

	return len(events), nil
}

// Audit returns the attempt and its full persisted event history in
// server-recorded order. Audit reads are allowed in any lifecycle state.
func (s *EventService) Audit(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, []model.Event, error) {
	a, err := s.gate.Get(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}

	events, err := s.reader.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	return a, events, nil
}

// ViolationTally returns the attempt's recorded violation count for the
// admin overlay. Best-effort; errors degrade to zero.
func (s *EventService) ViolationTally(ctx context.Context, attemptID uuid.UUID) int64 {
	n, err := s.sink.ViolationCount(ctx, attemptID)
	if err != nil {
		s.log.Debug().Err(err).Str("attempt_id", attemptID.String()).Msg("Violation tally read failed")
		return 0
	}
	return n
}
