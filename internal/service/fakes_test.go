package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// fakeAttemptStore mimics the repository's guarded SQL semantics in
// memory: Create loses to an existing user row, ExpireOverdue and Submit
// are conditional updates that report whether a row changed.
type fakeAttemptStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*model.Attempt
	byUser   map[string]uuid.UUID
	hideUser int // makes GetByUserID miss n times, to simulate a create race
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		byID:   make(map[uuid.UUID]*model.Attempt),
		byUser: make(map[string]uuid.UUID),
	}
}

func (s *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUser[a.UserID]; exists {
		return pgx.ErrNoRows
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	s.byID[a.AttemptID] = &cp
	s.byUser[a.UserID] = a.AttemptID
	return nil
}

func (s *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttemptStore) GetByUserID(_ context.Context, userID string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideUser > 0 {
		s.hideUser--
		return nil, pgx.ErrNoRows
	}
	id, ok := s.byUser[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *fakeAttemptStore) ExpireOverdue(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.Status != model.AttemptStatusInProgress || !now.After(a.EndTime) {
		return false, nil
	}
	a.Status = model.AttemptStatusExpired
	a.UpdatedAt = now
	return true, nil
}

func (s *fakeAttemptStore) Submit(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.Status != model.AttemptStatusInProgress || now.After(a.EndTime) {
		return false, nil
	}
	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &now
	a.UpdatedAt = now
	return true, nil
}

func (s *fakeAttemptStore) ListAll(_ context.Context) ([]model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Attempt, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, *a)
	}
	return out, nil
}

// seed installs an attempt directly, bypassing Create.
func (s *fakeAttemptStore) seed(a *model.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.byID[a.AttemptID] = &cp
	s.byUser[a.UserID] = a.AttemptID
}

type fakeTestStore struct {
	mu      sync.Mutex
	current *model.TestConfig
	titles  map[string]bool
}

func newFakeTestStore(current *model.TestConfig) *fakeTestStore {
	return &fakeTestStore{current: current, titles: make(map[string]bool)}
}

func (s *fakeTestStore) GetCurrent(_ context.Context) (*model.TestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *s.current
	return &cp, nil
}

func (s *fakeTestStore) Create(_ context.Context, t *model.TestConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titles[t.Title] {
		return pgx.ErrNoRows
	}
	s.titles[t.Title] = true
	if s.current == nil {
		cp := *t
		s.current = &cp
	}
	return nil
}

type fakeEventSink struct {
	mu         sync.Mutex
	enqueued   []*model.Event
	violations int64
	published  int
	enqueueErr error
}

func (s *fakeEventSink) Enqueue(_ context.Context, events []*model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, events...)
	return nil
}

func (s *fakeEventSink) BumpViolations(_ context.Context, _ uuid.UUID, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations += n
	return nil
}

func (s *fakeEventSink) ViolationCount(_ context.Context, _ uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations, nil
}

func (s *fakeEventSink) Publish(_ context.Context, _ uuid.UUID, events []*model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published += len(events)
}

type fakeEventReader struct {
	events []model.Event
}

func (r *fakeEventReader) ListByAttempt(_ context.Context, _ uuid.UUID) ([]model.Event, error) {
	return r.events, nil
}

type fakeAnswerStore struct {
	mu   sync.Mutex
	rows map[string]string // question_id -> value, single attempt
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{rows: make(map[string]string)}
}

func (s *fakeAnswerStore) Upsert(_ context.Context, _ uuid.UUID, questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[questionID] = value
	return nil
}

func (s *fakeAnswerStore) MapByAttempt(_ context.Context, _ uuid.UUID) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out, nil
}

func (s *fakeAnswerStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Answer, 0, len(s.rows))
	for q, v := range s.rows {
		out = append(out, model.Answer{AttemptID: attemptID, QuestionID: q, Value: v})
	}
	return out, nil
}

type fakeAnswerCache struct {
	mu     sync.Mutex
	hash   map[string]string
	getErr error
}

func newFakeAnswerCache() *fakeAnswerCache {
	return &fakeAnswerCache{hash: make(map[string]string)}
}

func (c *fakeAnswerCache) Save(_ context.Context, _ uuid.UUID, questionID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash[questionID] = value
	return nil
}

func (c *fakeAnswerCache) GetAll(_ context.Context, _ uuid.UUID) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string]string, len(c.hash))
	for k, v := range c.hash {
		out[k] = v
	}
	return out, nil
}

func (c *fakeAnswerCache) SetAll(_ context.Context, _ uuid.UUID, answers map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range answers {
		c.hash[k] = v
	}
	return nil
}

// newTestAttemptService wires an AttemptService over fakes with a
// controllable clock.
func newTestAttemptService(duration time.Duration) (*AttemptService, *fakeAttemptStore, *time.Time) {
	store := newFakeAttemptStore()
	tests := newFakeTestStore(&model.TestConfig{
		ID:              uuid.New(),
		Title:           "Screening",
		DurationSeconds: int(duration.Seconds()),
	})
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	svc := NewAttemptService(store, tests)
	svc.now = func() time.Time { return now }
	return svc, store, &now
}
