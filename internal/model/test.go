package model

import (
	"time"

	"github.com/google/uuid"
)

// TestConfig holds the assessment configuration. Attempt deadlines are
// derived from DurationSeconds at attempt creation.
type TestConfig struct {
	ID              uuid.UUID `json:"test_id"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateTestRequest is the admin payload for creating a test configuration.
type CreateTestRequest struct {
	Title           string `json:"title" binding:"required,min=1,max=200"`
	DurationSeconds int    `json:"duration_seconds" binding:"required,min=15"`
}
