package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states. The only legal
// transitions are IN_PROGRESS → SUBMITTED and IN_PROGRESS → EXPIRED.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
)

// Terminal reports whether the status permits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusSubmitted || s == AttemptStatusExpired
}

// Attempt is one candidate's timed run of the assessment. There is at most
// one attempt per user; attempts are never deleted.
type Attempt struct {
	AttemptID       uuid.UUID     `json:"attempt_id"`
	UserID          string        `json:"user_id"`
	TestID          uuid.UUID     `json:"test_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	DurationSeconds int           `json:"duration_seconds"`
	Status          AttemptStatus `json:"status"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Remaining returns the time left until the deadline, never negative.
func (a *Attempt) Remaining(now time.Time) time.Duration {
	if r := a.EndTime.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Overdue reports whether the deadline has passed.
func (a *Attempt) Overdue(now time.Time) bool {
	return now.After(a.EndTime)
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	UserID string `json:"user_id" binding:"required,min=1,max=128"`
}
