package proctor

import (
	"github.com/vigilexam/vigil-backend/internal/model"
)

// Classification is the interpretation of a signal kind: the ledger
// event it maps to, whether it counts against the violation limit,
// whether it carries a question scope, and whether the session may be
// ending when it fires. Teardown kinds also go out through the
// best-effort channel, since a confirmed flush may never get the chance
// to run.
type Classification struct {
	EventType      model.EventType
	Violation      bool
	QuestionScoped bool
	Teardown       bool
}

// classifications is the single mapping from raw signals to ledger
// events. Violation flags must agree with model.EventType.Violation.
var classifications = map[SignalKind]Classification{
	SignalTimerStarted:   {EventType: model.EventTimerStarted},
	SignalWarning:        {EventType: model.EventWarningThreshold},
	SignalTimerExpired:   {EventType: model.EventTimerExpired},
	SignalAutoSubmit:     {EventType: model.EventAutoSubmit},
	SignalTestSubmitted:  {EventType: model.EventTestSubmitted},
	SignalAutoSubmitted:  {EventType: model.EventAutoSubmitted},
	SignalViolationLimit: {EventType: model.EventViolationLimit},

	SignalFullscreenExit: {EventType: model.EventFullscreenExit, Violation: true, Teardown: true},
	SignalTabHidden:      {EventType: model.EventTabHidden, Violation: true, Teardown: true},
	SignalTabVisible:     {EventType: model.EventTabVisible},
	SignalFocusLost:      {EventType: model.EventFocusLost, Violation: true},
	SignalTabSwitch:      {EventType: model.EventTabSwitch, Violation: true},
	SignalDevtools:       {EventType: model.EventDevtoolsAttempt, Violation: true},
	SignalShortcut:       {EventType: model.EventShortcutBlocked, Violation: true},

	SignalCopy:       {EventType: model.EventCopyAttempt, Violation: true, QuestionScoped: true},
	SignalPaste:      {EventType: model.EventPasteAttempt, Violation: true, QuestionScoped: true},
	SignalRightClick: {EventType: model.EventRightClick, Violation: true, QuestionScoped: true},
}

// Classify maps a signal kind to its classification. Unknown kinds are
// reported rather than silently absorbed.
func Classify(kind SignalKind) (Classification, bool) {
	c, ok := classifications[kind]
	return c, ok
}
