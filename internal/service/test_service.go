package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// ErrDuplicateTestTitle is returned when a test title is already taken.
var ErrDuplicateTestTitle = errors.New("test title already exists")

// QuestionStore reads the static question set.
type QuestionStore interface {
	ListAll(ctx context.Context) ([]model.Question, error)
}

// TestService serves the static assessment content: the question set and
// the test configuration attempts are created from.
type TestService struct {
	tests     TestStore
	questions QuestionStore
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, questions QuestionStore) *TestService {
	return &TestService{tests: tests, questions: questions}
}

// Questions returns the question set in display order.
func (s *TestService) Questions(ctx context.Context) ([]model.Question, error) {
	return s.questions.ListAll(ctx)
}

// CreateTest creates a new test configuration with a unique title.
func (s *TestService) CreateTest(ctx context.Context, req *model.CreateTestRequest) (*model.TestConfig, error) {
	t := &model.TestConfig{
		ID:              uuid.New(),
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.tests.Create(ctx, t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateTestTitle
		}
		return nil, fmt.Errorf("create test: %w", err)
	}
	return t, nil
}
