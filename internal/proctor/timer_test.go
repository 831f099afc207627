package proctor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func collect(ch <-chan Signal, n int, timeout time.Duration) []Signal {
	var out []Signal
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case sig, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, sig)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestTimerEmitsMilestonesInOrder(t *testing.T) {
	source := NewSource(16)
	ch := source.Start()
	defer source.Stop()

	var expired int32
	end := time.Now().Add(100 * time.Millisecond)
	timer := NewTimer(end, 50*time.Millisecond, source, func() { atomic.AddInt32(&expired, 1) })

	go timer.Run(context.Background())

	signals := collect(ch, 3, 2*time.Second)
	if len(signals) != 3 {
		t.Fatalf("got %d signals, want 3", len(signals))
	}
	want := []SignalKind{SignalTimerStarted, SignalWarning, SignalTimerExpired}
	for i, kind := range want {
		if signals[i].Kind != kind {
			t.Errorf("signal %d = %s, want %s", i, signals[i].Kind, kind)
		}
	}
	if atomic.LoadInt32(&expired) != 1 {
		t.Fatalf("expiry fired %d times, want 1", expired)
	}
}

func TestTimerSkipsWarningWhenPastLead(t *testing.T) {
	source := NewSource(16)
	ch := source.Start()
	defer source.Stop()

	// Warning mark already behind us; only start and expiry should fire.
	end := time.Now().Add(50 * time.Millisecond)
	timer := NewTimer(end, time.Minute, source, nil)

	go timer.Run(context.Background())

	signals := collect(ch, 2, 2*time.Second)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].Kind != SignalTimerStarted || signals[1].Kind != SignalTimerExpired {
		t.Fatalf("signals = %v", signals)
	}
}

func TestTimerExpiryFiresOnceAcrossRestarts(t *testing.T) {
	source := NewSource(32)
	source.Start()
	defer source.Stop()

	var expired int32
	end := time.Now().Add(20 * time.Millisecond)
	timer := NewTimer(end, time.Minute, source, func() { atomic.AddInt32(&expired, 1) })

	done := make(chan struct{})
	go func() { timer.Run(context.Background()); done <- struct{}{} }()
	<-done
	go func() { timer.Run(context.Background()); done <- struct{}{} }()
	<-done

	if got := atomic.LoadInt32(&expired); got != 1 {
		t.Fatalf("expiry fired %d times across restarts, want 1", got)
	}
}

func TestSourceDropsWhileStopped(t *testing.T) {
	source := NewSource(4)
	if source.Emit(Signal{Kind: SignalTabHidden}) {
		t.Fatal("stopped source accepted a signal")
	}

	ch := source.Start()
	if !source.Emit(Signal{Kind: SignalTabHidden}) {
		t.Fatal("running source rejected a signal")
	}

	source.Stop()
	if _, ok := <-ch; !ok {
		// Drained the one buffered signal, channel now closed.
		t.Fatal("buffered signal lost on stop")
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after stop")
	}
}
