package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed enumeration of proctoring event kinds.
type EventType string

const (
	// Timer milestones.
	EventTimerStarted     EventType = "TIMER_STARTED"
	EventWarningThreshold EventType = "WARNING_THRESHOLD_REACHED"
	EventTimerExpired     EventType = "TIMER_EXPIRED"

	// Submission markers.
	EventAutoSubmit    EventType = "AUTO_SUBMIT"
	EventTestSubmitted EventType = "TEST_SUBMITTED"
	EventAutoSubmitted EventType = "AUTO_SUBMITTED"

	// Integrity violations.
	EventFullscreenExit   EventType = "FULLSCREEN_EXIT"
	EventTabHidden        EventType = "TAB_HIDDEN"
	EventTabVisible       EventType = "TAB_VISIBLE"
	EventFocusLost        EventType = "FOCUS_LOST"
	EventTabSwitch        EventType = "TAB_SWITCH"
	EventCopyAttempt      EventType = "COPY_ATTEMPT"
	EventPasteAttempt     EventType = "PASTE_ATTEMPT"
	EventRightClick       EventType = "RIGHT_CLICK_BLOCKED"
	EventDevtoolsAttempt  EventType = "DEVTOOLS_ATTEMPT"
	EventShortcutBlocked  EventType = "KEYBOARD_SHORTCUT_BLOCKED"
	EventViolationLimit   EventType = "VIOLATION_LIMIT_REACHED"
)

// violationKinds is the single classification table shared by the client
// monitor and the server-side tally.
var violationKinds = map[EventType]bool{
	EventFullscreenExit:  true,
	EventTabHidden:       true,
	EventFocusLost:       true,
	EventTabSwitch:       true,
	EventCopyAttempt:     true,
	EventPasteAttempt:    true,
	EventRightClick:      true,
	EventDevtoolsAttempt: true,
	EventShortcutBlocked: true,
}

// Violation reports whether this event kind counts against the
// candidate's violation limit.
func (t EventType) Violation() bool {
	return violationKinds[t]
}

// Known reports whether t belongs to the closed enumeration.
func (t EventType) Known() bool {
	switch t {
	case EventTimerStarted, EventWarningThreshold, EventTimerExpired,
		EventAutoSubmit, EventTestSubmitted, EventAutoSubmitted,
		EventFullscreenExit, EventTabHidden, EventTabVisible,
		EventFocusLost, EventTabSwitch, EventCopyAttempt,
		EventPasteAttempt, EventRightClick, EventDevtoolsAttempt,
		EventShortcutBlocked, EventViolationLimit:
		return true
	}
	return false
}

// Event is one append-only ledger row. ID is the client-generated
// idempotency key; RecordedAt is the server timestamp and the
// authoritative ordering for audit display.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	AttemptID  uuid.UUID              `json:"attempt_id"`
	EventType  EventType              `json:"event_type"`
	OccurredAt time.Time              `json:"timestamp"`
	RecordedAt time.Time              `json:"recorded_at"`
	QuestionID *string                `json:"question_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IncomingEvent is one client-submitted event in a LogEventsRequest.
// ID is optional; events without one are accepted but cannot be
// deduplicated across retries.
type IncomingEvent struct {
	ID         string                 `json:"id"`
	EventType  EventType              `json:"event_type" binding:"required"`
	Timestamp  time.Time              `json:"timestamp"`
	QuestionID *string                `json:"question_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// LogEventsRequest is the batch ingestion payload. Metadata applies to
// every event in the batch and is merged under each event's own metadata.
type LogEventsRequest struct {
	Events   []IncomingEvent        `json:"events" binding:"required,min=1,dive"`
	Metadata map[string]interface{} `json:"metadata"`
}
