package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// AttemptRepository handles attempt data access. Every state transition is
// a single conditional UPDATE guarded on the current status, so concurrent
// requests can never move an attempt backward or double-apply a transition.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `attempt_id, user_id, test_id, start_time, end_time,
	duration_seconds, status, submitted_at, created_at, updated_at`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(
		&a.AttemptID, &a.UserID, &a.TestID, &a.StartTime, &a.EndTime,
		&a.DurationSeconds, &a.Status, &a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt. The unique index on user_id makes
// concurrent starts race-safe: the loser gets pgx.ErrNoRows and should
// fetch the winner's row.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (attempt_id, user_id, test_id, start_time, end_time, duration_seconds, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO NOTHING
		 RETURNING created_at, updated_at`,
		a.AttemptID, a.UserID, a.TestID, a.StartTime, a.EndTime, a.DurationSeconds, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = $1`, attemptID))
}

// GetByUserID retrieves a user's attempt, if any.
func (r *AttemptRepository) GetByUserID(ctx context.Context, userID string) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1`, userID))
}

// ExpireOverdue flips an overdue IN_PROGRESS attempt to EXPIRED. Returns
// whether this call performed the flip. The guard makes expiry monotonic
// and is the sole expiry mechanism — there is no background sweep.
func (r *AttemptRepository) ExpireOverdue(ctx context.Context, attemptID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, updated_at = $2
		 WHERE attempt_id = $3 AND status = $4 AND end_time < $2`,
		model.AttemptStatusExpired, now, attemptID, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Submit finalizes an IN_PROGRESS, unexpired attempt. Returns false when
// the guard did not match (already terminal, or past the deadline).
func (r *AttemptRepository) Submit(ctx context.Context, attemptID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, submitted_at = $2, updated_at = $2
		 WHERE attempt_id = $3 AND status = $4 AND end_time >= $2`,
		model.AttemptStatusSubmitted, now, attemptID, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListAll returns every attempt, newest first, for the admin review table.
func (r *AttemptRepository) ListAll(ctx context.Context) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
