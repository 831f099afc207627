package proctor

import (
	"context"
	"sync"
	"time"
)

// DefaultWarningLead is how long before the deadline the warning signal
// fires when no lead time is configured.
const DefaultWarningLead = 5 * time.Minute

// Timer drives the attempt countdown: it emits the timer milestone
// signals and fires the expiry callback exactly once.
type Timer struct {
	end      time.Time
	warnLead time.Duration
	source   *Source
	onExpiry func()
	once     sync.Once
}

// NewTimer creates a Timer for an attempt ending at end. onExpiry may be
// nil; a non-positive warnLead falls back to DefaultWarningLead.
func NewTimer(end time.Time, warnLead time.Duration, source *Source, onExpiry func()) *Timer {
	if warnLead <= 0 {
		warnLead = DefaultWarningLead
	}
	return &Timer{
		end:      end,
		warnLead: warnLead,
		source:   source,
		onExpiry: onExpiry,
	}
}

// Remaining returns the time left, never negative.
func (t *Timer) Remaining(now time.Time) time.Duration {
	if r := t.end.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Run emits TIMER_STARTED, then WARNING_THRESHOLD_REACHED at the lead
// mark if it is still in the future, then TIMER_EXPIRED at the deadline.
// The expiry callback fires at most once even if Run is restarted.
func (t *Timer) Run(ctx context.Context) {
	t.source.Emit(Signal{Kind: SignalTimerStarted})

	now := time.Now()
	if warnAt := t.end.Add(-t.warnLead); warnAt.After(now) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(warnAt)):
			t.source.Emit(Signal{Kind: SignalWarning})
		}
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(t.Remaining(time.Now())):
	}

	t.source.Emit(Signal{Kind: SignalTimerExpired})
	t.once.Do(func() {
		if t.onExpiry != nil {
			t.onExpiry()
		}
	})
}
