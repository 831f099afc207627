package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one free-text answer, keyed by (attempt, question).
// Saves are last-write-wins upserts; answers are never deleted while the
// attempt is live.
type Answer struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	Value      string    `json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AnswerInput is one entry of a batch answer save.
type AnswerInput struct {
	QuestionID string `json:"question_id" binding:"required"`
	Value      string `json:"value"`
}

// SaveAnswersRequest is the batch upsert payload. Replaying the same
// batch is safe.
type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,dive"`
}
