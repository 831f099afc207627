package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
	"github.com/vigilexam/vigil-backend/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventSource is the queue side the worker drains and requeues to.
type EventSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*model.Event, error)
	Enqueue(ctx context.Context, events []*model.Event) error
}

// EventLedger persists drained events.
type EventLedger interface {
	BulkInsert(ctx context.Context, events []*model.Event) error
	InsertOne(ctx context.Context, e *model.Event) error
}

// LedgerWorker drains the event queue into the append-only events table.
// Batches go in via COPY; when a batch fails (usually a duplicate id
// from client redelivery) it falls back to row-by-row inserts where the
// id conflict clause collapses the duplicates.
type LedgerWorker struct {
	queue  EventSource
	ledger EventLedger
	log    zerolog.Logger
}

// NewLedgerWorker creates a new LedgerWorker.
func NewLedgerWorker(queue EventSource, ledger EventLedger, log zerolog.Logger) *LedgerWorker {
	return &LedgerWorker{
		queue:  queue,
		ledger: ledger,
		log:    log.With().Str("component", "ledger_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("LedgerWorker started")

	buffer := make([]*model.Event, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch the next event. Dequeue blocks up to PollTimeout and
		// returns immediately if data exists.
		event, err := w.queue.Dequeue(ctx, PollTimeout)
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if errors.Is(err, repository.ErrBadPayload) {
				// Malformed entries cannot be retried. Log and discard.
				w.log.Error().Err(err).Msg("Discarding undecodable queue entry")
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		buffer = append(buffer, event)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *LedgerWorker) flushSafe(ctx context.Context, batch []*model.Event) {
	if err := w.ledger.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *LedgerWorker) fallbackInsert(ctx context.Context, batch []*model.Event) {
	requeueList := make([]*model.Event, 0)

	for _, e := range batch {
		// Redelivered duplicates land here and are absorbed by the id
		// conflict clause.
		if err := w.ledger.InsertOne(ctx, e); err != nil {
			w.log.Error().Err(err).Str("event_id", e.ID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *LedgerWorker) requeue(ctx context.Context, items []*model.Event) {
	if err := w.queue.Enqueue(ctx, items); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *LedgerWorker) shutdown(buffer []*model.Event) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
