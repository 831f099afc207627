package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// EventRepository reads and writes the append-only event ledger. Rows are
// immutable once inserted; the client-assigned id is the primary key, so
// at-least-once delivery collapses to exactly-once storage.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// BulkInsert appends a batch via COPY. It fails as a whole on any
// duplicate id; callers fall back to InsertOne per row.
func (r *EventRepository) BulkInsert(ctx context.Context, events []*model.Event) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, []interface{}{
			e.ID, e.AttemptID, string(e.EventType), e.OccurredAt, e.RecordedAt, e.QuestionID, meta,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"events"},
		[]string{"id", "attempt_id", "event_type", "occurred_at", "recorded_at", "question_id", "metadata"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// InsertOne appends a single event, silently skipping duplicates of a
// previously stored id.
func (r *EventRepository) InsertOne(ctx context.Context, e *model.Event) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO events (id, attempt_id, event_type, occurred_at, recorded_at, question_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.AttemptID, string(e.EventType), e.OccurredAt, e.RecordedAt, e.QuestionID, meta)
	return err
}

// ListByAttempt returns an attempt's full event history ordered by the
// server-recorded timestamp, which is the authoritative audit order.
func (r *EventRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, event_type, occurred_at, recorded_at, question_id, metadata
		 FROM events
		 WHERE attempt_id = $1
		 ORDER BY recorded_at ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AttemptID, &e.EventType, &e.OccurredAt, &e.RecordedAt, &e.QuestionID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
