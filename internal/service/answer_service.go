package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// AnswerStore is the persistent side of answer storage.
type AnswerStore interface {
	Upsert(ctx context.Context, attemptID uuid.UUID, questionID, value string) error
	MapByAttempt(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
}

// AnswerHotCache is the write-through fast path for autosave: saves land
// here immediately and are persisted asynchronously by the autosave
// worker.
type AnswerHotCache interface {
	Save(ctx context.Context, attemptID uuid.UUID, questionID, value string) error
	GetAll(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)
	SetAll(ctx context.Context, attemptID uuid.UUID, answers map[string]string) error
}

// AnswerService gates answer writes on the attempt lifecycle and serves
// reads from the hot cache with a self-healing PostgreSQL fallback.
// Batch saves are idempotent last-write-wins upserts.
type AnswerService struct {
	gate  AttemptGate
	cache AnswerHotCache
	store AnswerStore
	log   zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(gate AttemptGate, cache AnswerHotCache, store AnswerStore, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		gate:  gate,
		cache: cache,
		store: store,
		log:   log.With().Str("component", "answer_service").Logger(),
	}
}

// Save upserts a batch of answers for an IN_PROGRESS attempt. Entries
// without a question ID are skipped, matching the batch contract that
// replaying the same payload is always safe. Returns the number of
// answers written.
func (s *AnswerService) Save(ctx context.Context, attemptID uuid.UUID, req *model.SaveAnswersRequest) (int, error) {
	if _, err := s.gate.RequireInProgress(ctx, attemptID); err != nil {
		return 0, err
	}

	count := 0
	for _, in := range req.Answers {
		if in.QuestionID == "" {
			continue
		}
		if err := s.cache.Save(ctx, attemptID, in.QuestionID, in.Value); err != nil {
			return count, fmt.Errorf("save answer %s: %w", in.QuestionID, err)
		}
		count++
	}
	return count, nil
}

// Map returns the attempt's answers as question_id → value, preferring
// the hot cache and self-healing it from PostgreSQL on a miss.
func (s *AnswerService) Map(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	if _, err := s.gate.Get(ctx, attemptID); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetAll(ctx, attemptID)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Answer cache read failed, falling back to database")
	}

	stored, err := s.store.MapByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	if err := s.cache.SetAll(ctx, attemptID, stored); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Answer cache self-heal failed")
	}

	return stored, nil
}

// Dump returns the attempt's answers as full rows for admin review,
// overlaying not-yet-persisted cache values on top of the database rows.
func (s *AnswerService) Dump(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	if _, err := s.gate.Get(ctx, attemptID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	cached, err := s.cache.GetAll(ctx, attemptID)
	if err != nil || len(cached) == 0 {
		return rows, nil
	}

	seen := make(map[string]int, len(rows))
	for i, a := range rows {
		seen[a.QuestionID] = i
		if v, ok := cached[a.QuestionID]; ok {
			rows[i].Value = v
		}
	}
	for qid, v := range cached {
		if _, ok := seen[qid]; !ok {
			rows = append(rows, model.Answer{AttemptID: attemptID, QuestionID: qid, Value: v})
		}
	}
	return rows, nil
}
