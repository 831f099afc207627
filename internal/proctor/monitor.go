package proctor

import (
	"sync"
)

// DefaultThreshold is the violation limit used when the server does not
// supply one in the start/resume payload.
const DefaultThreshold = 10

// Monitor counts violations and fires the limit callback exactly once,
// no matter how many violations arrive concurrently at the boundary.
type Monitor struct {
	mu        sync.Mutex
	threshold int
	count     int
	fired     bool
	onLimit   func()
}

// NewMonitor creates a Monitor. A non-positive threshold falls back to
// DefaultThreshold. onLimit may be nil.
func NewMonitor(threshold int, onLimit func()) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Monitor{threshold: threshold, onLimit: onLimit}
}

// Observe records one classified signal. Returns the running violation
// count and whether this observation is the one that crossed the limit.
// The limit callback runs synchronously, outside the counter lock.
func (m *Monitor) Observe(c Classification) (int, bool) {
	if !c.Violation {
		m.mu.Lock()
		n := m.count
		m.mu.Unlock()
		return n, false
	}

	m.mu.Lock()
	m.count++
	n := m.count
	crossed := n >= m.threshold && !m.fired
	if crossed {
		m.fired = true
	}
	m.mu.Unlock()

	if crossed && m.onLimit != nil {
		m.onLimit()
	}
	return n, crossed
}

// Count returns the current violation count.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Threshold returns the configured limit.
func (m *Monitor) Threshold() int {
	return m.threshold
}

// LimitReached reports whether the one-shot limit has fired.
func (m *Monitor) LimitReached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}
