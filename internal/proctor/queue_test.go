package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

type fakeChannel struct {
	mu        sync.Mutex
	delivered [][]model.IncomingEvent
	err       error
}

func (c *fakeChannel) Deliver(_ context.Context, events []model.IncomingEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	batch := make([]model.IncomingEvent, len(events))
	copy(batch, events)
	c.delivered = append(c.delivered, batch)
	return nil
}

func (c *fakeChannel) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeChannel) batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

func newTestQueue(ch DeliveryChannel) *Queue {
	return NewQueue(NewMemStore(), ch, nil, time.Hour, zerolog.Nop())
}

func TestQueueEnqueueAssignsID(t *testing.T) {
	q := newTestQueue(&fakeChannel{})

	if err := q.Enqueue(model.IncomingEvent{EventType: model.EventTabHidden}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	events, _ := q.store.Snapshot()
	if events[0].ID == "" {
		t.Fatal("enqueued event has no idempotency key")
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("enqueued event has no timestamp")
	}
}

func TestQueueFlushRemovesOnlyConfirmed(t *testing.T) {
	ch := &fakeChannel{}
	q := newTestQueue(ch)

	for i := 0; i < 3; i++ {
		q.Enqueue(model.IncomingEvent{EventType: model.EventFocusLost})
	}

	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("confirmed events still pending: %d", q.Len())
	}
	if ch.batches() != 1 {
		t.Fatalf("batches = %d, want 1", ch.batches())
	}
}

func TestQueueFlushKeepsEventsOnFailure(t *testing.T) {
	ch := &fakeChannel{}
	ch.setErr(errors.New("network down"))
	q := newTestQueue(ch)

	q.Enqueue(model.IncomingEvent{EventType: model.EventCopyAttempt})

	if err := q.Flush(context.Background()); err == nil {
		t.Fatal("flush should fail")
	}
	if q.Len() != 1 {
		t.Fatalf("failed events dropped: len = %d", q.Len())
	}

	// Recovery: the same event goes out on the next flush with the same id.
	before, _ := q.store.Snapshot()
	ch.setErr(nil)
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	if q.Len() != 0 {
		t.Fatal("events not cleared after confirmed delivery")
	}
	if ch.delivered[0][0].ID != before[0].ID {
		t.Fatal("retry changed the idempotency key")
	}
}

func TestQueueFlushDiscardsForClosedAttempt(t *testing.T) {
	ch := &fakeChannel{}
	ch.setErr(ErrAttemptClosed)
	q := newTestQueue(ch)

	q.Enqueue(model.IncomingEvent{EventType: model.EventTabSwitch})

	err := q.Flush(context.Background())
	if !errors.Is(err, ErrAttemptClosed) {
		t.Fatalf("err = %v, want ErrAttemptClosed", err)
	}
	if q.Len() != 0 {
		t.Fatalf("events for a closed attempt retained: %d", q.Len())
	}
}

func TestQueueBestEffortLeavesEventsForConfirmedFlush(t *testing.T) {
	confirmed := &fakeChannel{}
	bestEffort := &fakeChannel{}
	q := NewQueue(NewMemStore(), confirmed, bestEffort, time.Hour, zerolog.Nop())

	q.Enqueue(model.IncomingEvent{EventType: model.EventTabHidden})
	q.Enqueue(model.IncomingEvent{EventType: model.EventFullscreenExit})

	// Teardown path: the batch goes out unconfirmed and stays queued.
	q.FlushBestEffort(context.Background())
	if bestEffort.batches() != 1 {
		t.Fatalf("best-effort batches = %d, want 1", bestEffort.batches())
	}
	if q.Len() != 2 {
		t.Fatalf("best-effort send drained the store: len = %d", q.Len())
	}

	// The session survived after all; the confirmed flush reconciles the
	// same events under the same idempotency keys.
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("confirmed flush left events pending: %d", q.Len())
	}
	for i := range bestEffort.delivered[0] {
		if confirmed.delivered[0][i].ID != bestEffort.delivered[0][i].ID {
			t.Fatal("confirmed delivery changed the idempotency key")
		}
	}
}

func TestQueueBestEffortFailureKeepsEvents(t *testing.T) {
	bestEffort := &fakeChannel{}
	bestEffort.setErr(errors.New("send interrupted"))
	q := NewQueue(NewMemStore(), &fakeChannel{}, bestEffort, time.Hour, zerolog.Nop())

	q.Enqueue(model.IncomingEvent{EventType: model.EventTabHidden})
	q.FlushBestEffort(context.Background())

	if q.Len() != 1 {
		t.Fatalf("failed best-effort send lost the event: len = %d", q.Len())
	}
}

func TestQueueFlushEmptyIsNoop(t *testing.T) {
	ch := &fakeChannel{}
	q := newTestQueue(ch)

	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if ch.batches() != 0 {
		t.Fatal("empty flush sent a batch")
	}
}

func TestQueueKickTriggersFlush(t *testing.T) {
	ch := &fakeChannel{}
	q := NewQueue(NewMemStore(), ch, nil, time.Hour, zerolog.Nop())
	q.Enqueue(model.IncomingEvent{EventType: model.EventTabVisible})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Kick()

	deadline := time.After(2 * time.Second)
	for q.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("kick did not flush")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
