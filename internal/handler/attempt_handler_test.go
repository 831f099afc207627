package handler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vigilexam/vigil-backend/internal/config"
	"github.com/vigilexam/vigil-backend/internal/model"
)

func TestAttemptPayloadCarriesProctoringConfig(t *testing.T) {
	cfg := &config.Config{
		ViolationThreshold: 7,
		WarningLeadTime:    90 * time.Second,
	}
	attempt := &model.Attempt{
		AttemptID: uuid.New(),
		StartTime: time.Now(),
		EndTime:   time.Now().Add(30 * time.Minute),
		Status:    model.AttemptStatusInProgress,
	}

	payload := attemptPayload(attempt, "tok", cfg)

	if payload["violation_threshold"] != 7 {
		t.Errorf("violation_threshold = %v, want 7", payload["violation_threshold"])
	}
	if payload["warning_lead_seconds"] != 90 {
		t.Errorf("warning_lead_seconds = %v, want 90", payload["warning_lead_seconds"])
	}
	if payload["token"] != "tok" {
		t.Errorf("token = %v, want tok", payload["token"])
	}
	if _, ok := payload["submitted_at"]; ok {
		t.Error("submitted_at should be absent for a live attempt")
	}
}

func TestAttemptPayloadOmitsEmptyToken(t *testing.T) {
	cfg := &config.Config{ViolationThreshold: 10, WarningLeadTime: time.Minute}
	now := time.Now()
	attempt := &model.Attempt{
		AttemptID:   uuid.New(),
		Status:      model.AttemptStatusSubmitted,
		SubmittedAt: &now,
	}

	payload := attemptPayload(attempt, "", cfg)

	if _, ok := payload["token"]; ok {
		t.Error("token should be absent when empty")
	}
	if payload["submitted_at"] != &now {
		t.Error("submitted_at missing for a submitted attempt")
	}
}
