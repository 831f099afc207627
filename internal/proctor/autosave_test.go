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

type fakeSaver struct {
	mu      sync.Mutex
	batches [][]model.AnswerInput
	err     error
}

func (s *fakeSaver) SaveAnswers(_ context.Context, answers []model.AnswerInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	batch := make([]model.AnswerInput, len(answers))
	copy(batch, answers)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeSaver) last() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, a := range s.batches[len(s.batches)-1] {
		out[a.QuestionID] = a.Value
	}
	return out
}

func TestAutosaveFlushSendsDirtyOnly(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosave(saver, time.Hour, zerolog.Nop())

	a.Set("q1", "draft one")
	a.Set("q2", "draft two")

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := saver.last(); got["q1"] != "draft one" || got["q2"] != "draft two" {
		t.Fatalf("flushed %v", got)
	}

	// Nothing dirty: second flush sends nothing.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(saver.batches) != 1 {
		t.Fatalf("clean flush sent a batch: %d", len(saver.batches))
	}
}

func TestAutosaveRetriesAfterFailure(t *testing.T) {
	saver := &fakeSaver{err: errors.New("server unreachable")}
	a := NewAutosave(saver, time.Hour, zerolog.Nop())

	a.Set("q1", "important draft")
	if err := a.Flush(context.Background()); err == nil {
		t.Fatal("flush should fail")
	}

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	if got := saver.last(); got["q1"] != "important draft" {
		t.Fatalf("answer lost across retry: %v", got)
	}
}

func TestAutosaveNewerEditWinsOverRetry(t *testing.T) {
	saver := &fakeSaver{err: errors.New("server unreachable")}
	a := NewAutosave(saver, time.Hour, zerolog.Nop())

	a.Set("q1", "v1")
	_ = a.Flush(context.Background())

	// Edit arrives while the failed flush is pending retry.
	a.Set("q1", "v2")

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := saver.last(); got["q1"] != "v2" {
		t.Fatalf("stale value resurrected: %v", got)
	}
}

func TestAutosaveSeedDoesNotClobberEdits(t *testing.T) {
	a := NewAutosave(&fakeSaver{}, time.Hour, zerolog.Nop())

	a.Set("q1", "local edit")
	a.Seed(map[string]string{"q1": "server copy", "q2": "recovered"})

	if v, _ := a.Get("q1"); v != "local edit" {
		t.Fatalf("seed clobbered local edit: %s", v)
	}
	if v, _ := a.Get("q2"); v != "recovered" {
		t.Fatalf("seed missing: %s", v)
	}
}
