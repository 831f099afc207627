package proctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// DefaultFlushInterval is how often pending events are pushed to the
// server when nothing else triggers a flush.
const DefaultFlushInterval = 5 * time.Second

// Queue is the durable delivery pipeline between signal classification
// and the server ledger. Events are appended to the store synchronously,
// flushed periodically, and removed only after a confirmed delivery, so
// every event is delivered at least once across crashes and retries.
type Queue struct {
	store      Store
	confirmed  DeliveryChannel
	bestEffort DeliveryChannel
	interval   time.Duration
	wake       chan struct{}
	log        zerolog.Logger
}

// NewQueue creates a Queue flushing through confirmed every interval.
// bestEffort is the unconfirmed teardown channel used by FlushBestEffort
// and may be nil. A non-positive interval falls back to
// DefaultFlushInterval.
func NewQueue(store Store, confirmed, bestEffort DeliveryChannel, interval time.Duration, log zerolog.Logger) *Queue {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Queue{
		store:      store,
		confirmed:  confirmed,
		bestEffort: bestEffort,
		interval:   interval,
		wake:       make(chan struct{}, 1),
		log:        log.With().Str("component", "event_queue").Logger(),
	}
}

// Enqueue stores one classified event for delivery. Events without an ID
// get one here; the ID is the idempotency key the server deduplicates
// on, so it must be assigned before the first send attempt.
func (q *Queue) Enqueue(e model.IncomingEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return q.store.Append(e)
}

// Kick requests an out-of-band flush, e.g. when visibility returns after
// a tab switch. Never blocks.
func (q *Queue) Kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run flushes on the interval and on Kick until ctx is done, then makes
// one final flush attempt.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := q.Flush(flushCtx); err != nil {
				q.log.Warn().Err(err).Msg("Final flush failed, events remain in store")
			}
			cancel()
			return
		case <-ticker.C:
			q.flushLogged(ctx)
		case <-q.wake:
			q.flushLogged(ctx)
		}
	}
}

func (q *Queue) flushLogged(ctx context.Context) {
	if err := q.Flush(ctx); err != nil && !errors.Is(err, ErrAttemptClosed) {
		q.log.Debug().Err(err).Msg("Flush failed, will retry")
	}
}

// Flush sends a snapshot of pending events and removes them from the
// store once the server confirms. A failed send leaves the snapshot in
// place for the next cycle. A closed attempt drains the store, since
// those events can never be accepted.
func (q *Queue) Flush(ctx context.Context) error {
	pending, err := q.store.Snapshot()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i, e := range pending {
		ids[i] = e.ID
	}

	if err := q.confirmed.Deliver(ctx, pending); err != nil {
		if errors.Is(err, ErrAttemptClosed) {
			q.log.Info().Int("count", len(pending)).Msg("Attempt closed, discarding pending events")
			return errors.Join(err, q.store.Remove(ids))
		}
		return err
	}

	return q.store.Remove(ids)
}

// FlushBestEffort pushes the pending snapshot through the unconfirmed
// teardown channel. Nothing is removed from the store: the events stay
// queued until a confirmed flush reconciles them, and the server's id
// dedupe absorbs the double delivery.
func (q *Queue) FlushBestEffort(ctx context.Context) {
	if q.bestEffort == nil {
		return
	}
	pending, err := q.store.Snapshot()
	if err != nil || len(pending) == 0 {
		return
	}
	if err := q.bestEffort.Deliver(ctx, pending); err != nil {
		q.log.Debug().Err(err).Msg("Best-effort send failed, events remain queued")
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return q.store.Len()
}
