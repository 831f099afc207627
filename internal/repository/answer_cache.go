package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vigilexam/vigil-backend/internal/config"
)

// AnswerCache is the Redis write-through for answer autosave: the hash
// holds the attempt's current answers for fast reads, and every save is
// also queued for upsert into PostgreSQL by the autosave worker.
type AnswerCache struct {
	rdb *redis.Client
}

// NewAnswerCache creates a new AnswerCache.
func NewAnswerCache(rdb *redis.Client) *AnswerCache {
	return &AnswerCache{rdb: rdb}
}

// answerJob is the wire shape on the persist queue.
type answerJob struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// Save writes one answer to the hot hash and queues it for persistence.
func (c *AnswerCache) Save(ctx context.Context, attemptID uuid.UUID, questionID, value string) error {
	key := config.CacheKey.AttemptAnswersKey(attemptID.String())
	if err := c.rdb.HSet(ctx, key, questionID, value).Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(answerJob{
		AttemptID:  attemptID.String(),
		QuestionID: questionID,
		Value:      value,
	})
	if err != nil {
		return err
	}
	return c.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
}

// GetAll returns the attempt's answers from the hot hash. An empty map
// means a cache miss (or a genuinely empty attempt) — callers fall back
// to PostgreSQL.
func (c *AnswerCache) GetAll(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
}

// SetAll self-heals the hot hash from an authoritative snapshot.
func (c *AnswerCache) SetAll(ctx context.Context, attemptID uuid.UUID, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	key := config.CacheKey.AttemptAnswersKey(attemptID.String())
	values := make([]interface{}, 0, len(answers)*2)
	for qid, v := range answers {
		values = append(values, qid, v)
	}
	return c.rdb.HSet(ctx, key, values...).Err()
}
