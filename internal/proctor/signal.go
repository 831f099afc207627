package proctor

import (
	"sync"
	"time"
)

// SignalKind enumerates the raw observations a session environment can
// produce. Signals are meaningless until classified; see classify.go.
type SignalKind string

const (
	SignalTimerStarted   SignalKind = "timer_started"
	SignalWarning        SignalKind = "warning_threshold"
	SignalTimerExpired   SignalKind = "timer_expired"
	SignalAutoSubmit     SignalKind = "auto_submit"
	SignalTestSubmitted  SignalKind = "test_submitted"
	SignalAutoSubmitted  SignalKind = "auto_submitted"
	SignalFullscreenExit SignalKind = "fullscreen_exit"
	SignalTabHidden      SignalKind = "tab_hidden"
	SignalTabVisible     SignalKind = "tab_visible"
	SignalFocusLost      SignalKind = "focus_lost"
	SignalTabSwitch      SignalKind = "tab_switch"
	SignalCopy           SignalKind = "copy"
	SignalPaste          SignalKind = "paste"
	SignalRightClick     SignalKind = "right_click"
	SignalDevtools       SignalKind = "devtools"
	SignalShortcut       SignalKind = "shortcut"
	SignalViolationLimit SignalKind = "violation_limit"
)

// Signal is one raw observation, optionally scoped to a question.
type Signal struct {
	Kind       SignalKind
	QuestionID string
	At         time.Time
	Detail     map[string]interface{}
}

// Source is a restartable signal stream. Emit is safe for concurrent
// use; signals emitted while the source is stopped are dropped, matching
// how listeners detach when a session tears down.
type Source struct {
	mu      sync.Mutex
	ch      chan Signal
	buffer  int
	running bool
}

// NewSource creates a stopped Source with the given channel buffer.
func NewSource(buffer int) *Source {
	if buffer <= 0 {
		buffer = 64
	}
	return &Source{buffer: buffer}
}

// Start begins emitting and returns the signal channel. Restarting an
// already-running source returns the live channel unchanged.
func (s *Source) Start() <-chan Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.ch = make(chan Signal, s.buffer)
		s.running = true
	}
	return s.ch
}

// Emit delivers a signal to the current listener. Returns false if the
// source is stopped or the buffer is full.
func (s *Source) Emit(sig Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if sig.At.IsZero() {
		sig.At = time.Now()
	}
	select {
	case s.ch <- sig:
		return true
	default:
		return false
	}
}

// Stop closes the stream. A stopped source can be started again.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.ch)
		s.running = false
	}
}

// Running reports whether the source is currently emitting.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
