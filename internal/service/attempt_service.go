package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// Common lifecycle errors.
var (
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrTestNotConfigured = errors.New("test not configured")
)

// ConflictReason identifies why a lifecycle transition was rejected.
type ConflictReason string

const (
	ConflictInProgress ConflictReason = "already_in_progress"
	ConflictCompleted  ConflictReason = "already_completed"
	ConflictSubmitted  ConflictReason = "already_submitted"
	ConflictExpired    ConflictReason = "expired"
)

// StateConflictError is returned when an operation is not legal in the
// attempt's current state. It carries the attempt ID and the current
// status so callers can redirect instead of retry.
type StateConflictError struct {
	AttemptID uuid.UUID
	Status    model.AttemptStatus
	Reason    ConflictReason
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("attempt %s: %s (status %s)", e.AttemptID, e.Reason, e.Status)
}

// AttemptStore is the persistence surface the state machine needs. All
// transition methods must be atomic conditional updates.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	GetByUserID(ctx context.Context, userID string) (*model.Attempt, error)
	ExpireOverdue(ctx context.Context, attemptID uuid.UUID, now time.Time) (bool, error)
	Submit(ctx context.Context, attemptID uuid.UUID, now time.Time) (bool, error)
	ListAll(ctx context.Context) ([]model.Attempt, error)
}

// TestStore provides the test configuration an attempt is created from.
type TestStore interface {
	GetCurrent(ctx context.Context) (*model.TestConfig, error)
	Create(ctx context.Context, t *model.TestConfig) error
}

// AttemptService is the authoritative attempt lifecycle state machine.
// Every server-side operation that touches an attempt consults it before
// proceeding; expiry always takes priority over any other transition
// evaluated in the same request.
type AttemptService struct {
	attempts AttemptStore
	tests    TestStore
	now      func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attempts AttemptStore, tests TestStore) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		tests:    tests,
		now:      time.Now,
	}
}

// refresh applies expire-on-read: an overdue IN_PROGRESS attempt is
// flipped to EXPIRED before the caller sees it. This is the sole expiry
// mechanism; there is no background sweep.
func (s *AttemptService) refresh(ctx context.Context, a *model.Attempt) (*model.Attempt, error) {
	now := s.now()
	if a.Status != model.AttemptStatusInProgress || !a.Overdue(now) {
		return a, nil
	}
	if _, err := s.attempts.ExpireOverdue(ctx, a.AttemptID, now); err != nil {
		return nil, fmt.Errorf("expire attempt: %w", err)
	}
	refreshed, err := s.attempts.GetByID(ctx, a.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	return refreshed, nil
}

// Start creates the user's single attempt, deriving the deadline from the
// configured test duration. If an attempt already exists — including one
// created concurrently — it is reported as a state conflict carrying the
// existing attempt's ID and current status.
func (s *AttemptService) Start(ctx context.Context, userID string) (*model.Attempt, error) {
	test, err := s.tests.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotConfigured
		}
		return nil, fmt.Errorf("load test config: %w", err)
	}

	existing, err := s.attempts.GetByUserID(ctx, userID)
	if err == nil {
		return nil, s.startConflict(ctx, existing)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}

	now := s.now()
	attempt := &model.Attempt{
		AttemptID:       uuid.New(),
		UserID:          userID,
		TestID:          test.ID,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(test.DurationSeconds) * time.Second),
		DurationSeconds: test.DurationSeconds,
		Status:          model.AttemptStatusInProgress,
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a concurrent start race; report the winner's attempt.
			winner, ferr := s.attempts.GetByUserID(ctx, userID)
			if ferr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", ferr)
			}
			return nil, s.startConflict(ctx, winner)
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	return attempt, nil
}

// startConflict converts an existing attempt into the appropriate start
// rejection, expiring it first if overdue.
func (s *AttemptService) startConflict(ctx context.Context, existing *model.Attempt) error {
	existing, err := s.refresh(ctx, existing)
	if err != nil {
		return err
	}
	reason := ConflictCompleted
	if existing.Status == model.AttemptStatusInProgress {
		reason = ConflictInProgress
	}
	return &StateConflictError{
		AttemptID: existing.AttemptID,
		Status:    existing.Status,
		Reason:    reason,
	}
}

// Get returns an attempt by ID with expire-on-read applied.
func (s *AttemptService) Get(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return s.refresh(ctx, a)
}

// GetByUser returns a user's attempt with expire-on-read applied.
func (s *AttemptService) GetByUser(ctx context.Context, userID string) (*model.Attempt, error) {
	a, err := s.attempts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt by user: %w", err)
	}
	return s.refresh(ctx, a)
}

// RequireInProgress is the ingestion gate: it returns the attempt only if
// it is IN_PROGRESS and unexpired, applying expire-on-read first. Event
// appends and answer writes both pass through here.
func (s *AttemptService) RequireInProgress(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case model.AttemptStatusSubmitted:
		return nil, &StateConflictError{AttemptID: a.AttemptID, Status: a.Status, Reason: ConflictSubmitted}
	case model.AttemptStatusExpired:
		return nil, &StateConflictError{AttemptID: a.AttemptID, Status: a.Status, Reason: ConflictExpired}
	}
	return a, nil
}

// Submit finalizes an attempt. Expiry wins any tie: an overdue attempt is
// expired and the submit rejected, even when both conditions hold in the
// same request. Terminal rejections are idempotent.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case model.AttemptStatusSubmitted:
		return nil, &StateConflictError{AttemptID: a.AttemptID, Status: a.Status, Reason: ConflictSubmitted}
	case model.AttemptStatusExpired:
		return nil, &StateConflictError{AttemptID: a.AttemptID, Status: a.Status, Reason: ConflictExpired}
	}

	ok, err := s.attempts.Submit(ctx, attemptID, s.now())
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}
	if !ok {
		// The guarded update lost a race: either a concurrent submit won
		// or the deadline passed since the read. Re-read and report.
		a, err = s.Get(ctx, attemptID)
		if err != nil {
			return nil, err
		}
		reason := ConflictSubmitted
		if a.Status == model.AttemptStatusExpired {
			reason = ConflictExpired
		}
		return nil, &StateConflictError{AttemptID: a.AttemptID, Status: a.Status, Reason: reason}
	}

	return s.attempts.GetByID(ctx, attemptID)
}

// ListAll returns every attempt for the admin review table.
func (s *AttemptService) ListAll(ctx context.Context) ([]model.Attempt, error) {
	return s.attempts.ListAll(ctx)
}
