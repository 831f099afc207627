package proctor

import (
	"sync"
	"sync/atomic"
	"testing"
)

func violation() Classification {
	c, _ := Classify(SignalTabHidden)
	return c
}

func TestMonitorCountsOnlyViolations(t *testing.T) {
	m := NewMonitor(10, nil)

	benign, _ := Classify(SignalTabVisible)
	for i := 0; i < 5; i++ {
		m.Observe(benign)
	}
	if m.Count() != 0 {
		t.Fatalf("benign signals counted: %d", m.Count())
	}

	m.Observe(violation())
	if m.Count() != 1 {
		t.Fatalf("count = %d, want 1", m.Count())
	}
}

func TestMonitorFiresOnceAtThreshold(t *testing.T) {
	var fired int32
	m := NewMonitor(3, func() { atomic.AddInt32(&fired, 1) })

	for i := 0; i < 10; i++ {
		_, crossed := m.Observe(violation())
		if crossed && i != 2 {
			t.Errorf("crossed at observation %d, want 2", i)
		}
	}

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}
	if !m.LimitReached() {
		t.Fatal("limit not marked as reached")
	}
	if m.Count() != 10 {
		t.Fatalf("count = %d, want 10", m.Count())
	}
}

func TestMonitorFiresOnceUnderConcurrency(t *testing.T) {
	var fired int32
	m := NewMonitor(50, func() { atomic.AddInt32(&fired, 1) })

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				m.Observe(violation())
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("callback fired %d times under concurrency, want 1", got)
	}
	if m.Count() != 200 {
		t.Fatalf("count = %d, want 200", m.Count())
	}
}

func TestMonitorDefaultThreshold(t *testing.T) {
	m := NewMonitor(0, nil)
	if m.Threshold() != DefaultThreshold {
		t.Fatalf("threshold = %d, want %d", m.Threshold(), DefaultThreshold)
	}
}
