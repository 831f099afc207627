package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// TestRepository handles test configuration access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetCurrent returns the active test configuration (the oldest one, to
// match first-configured-wins behavior).
func (r *TestRepository) GetCurrent(ctx context.Context) (*model.TestConfig, error) {
	t := &model.TestConfig{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_seconds, created_at
		 FROM tests
		 ORDER BY created_at ASC
		 LIMIT 1`,
	).Scan(&t.ID, &t.Title, &t.DurationSeconds, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new test configuration. The unique index on title makes
// duplicate titles surface as pgx.ErrNoRows.
func (r *TestRepository) Create(ctx context.Context, t *model.TestConfig) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (id, title, duration_seconds)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (title) DO NOTHING
		 RETURNING created_at`,
		t.ID, t.Title, t.DurationSeconds,
	).Scan(&t.CreatedAt)
}
