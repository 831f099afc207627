package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vigilexam/vigil-backend/internal/config"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// ErrBadPayload marks a queued entry that cannot be decoded. Retrying
// cannot help; consumers should discard and move on.
var ErrBadPayload = errors.New("undecodable queue payload")

// EventQueue is the Redis side of event ingestion: accepted events are
// pushed onto a durable list drained by the ledger worker, violation
// tallies are bumped for the admin overlay, and events are fanned out to
// live watchers over PubSub.
type EventQueue struct {
	rdb *redis.Client
}

// NewEventQueue creates a new EventQueue.
func NewEventQueue(rdb *redis.Client) *EventQueue {
	return &EventQueue{rdb: rdb}
}

// Enqueue pushes a batch of accepted events onto the persist queue.
func (q *EventQueue) Enqueue(ctx context.Context, events []*model.Event) error {
	pipe := q.rdb.Pipeline()
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, config.WorkerKey.PersistEventsQueue, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Dequeue blocks up to timeout for the next queued event. Returns
// redis.Nil when the queue stayed empty.
func (q *EventQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.Event, error) {
	result, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistEventsQueue).Result()
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, redis.Nil
	}
	var e model.Event
	if err := json.Unmarshal([]byte(result[1]), &e); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadPayload, err)
	}
	return &e, nil
}

// BumpViolations adds n to the attempt's violation tally.
func (q *EventQueue) BumpViolations(ctx context.Context, attemptID uuid.UUID, n int64) error {
	return q.rdb.IncrBy(ctx, config.CacheKey.AttemptViolationsKey(attemptID.String()), n).Err()
}

// ViolationCount returns the attempt's recorded violation tally.
func (q *EventQueue) ViolationCount(ctx context.Context, attemptID uuid.UUID) (int64, error) {
	n, err := q.rdb.Get(ctx, config.CacheKey.AttemptViolationsKey(attemptID.String())).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Publish fans accepted events out to live admin watchers. Best-effort:
// a failed publish never blocks ingestion.
func (q *EventQueue) Publish(ctx context.Context, attemptID uuid.UUID, events []*model.Event) {
	channel := config.CacheKey.AttemptEventsChannel(attemptID.String())
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		q.rdb.Publish(ctx, channel, data)
	}
}

// Subscribe opens a PubSub subscription on the attempt's event channel.
func (q *EventQueue) Subscribe(ctx context.Context, attemptID uuid.UUID) *redis.PubSub {
	return q.rdb.Subscribe(ctx, config.CacheKey.AttemptEventsChannel(attemptID.String()))
}
