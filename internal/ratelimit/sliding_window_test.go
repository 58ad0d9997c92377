package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

func TestSlidingWindowBoundary(t *testing.T) {
	l := NewSlidingWindow(3, 60*time.Second)

	for i := 0; i < 3; i++ {
		if !l.Allow("c1", epoch) {
			t.Fatalf("call %d at t=0 should be allowed", i+1)
		}
	}
	if l.Allow("c1", epoch) {
		t.Fatal("4th call at t=0 should be rejected")
	}
	if l.Allow("c1", epoch.Add(60*time.Second)) {
		t.Fatal("call at t=60 should be rejected: window is inclusive")
	}
	if !l.Allow("c1", epoch.Add(61*time.Second)) {
		t.Fatal("call at t=61 should be allowed")
	}
}

func TestSlidingWindowRejectedCallsDoNotConsume(t *testing.T) {
	l := NewSlidingWindow(1, 10*time.Second)
	if !l.Allow("c1", epoch) {
		t.Fatal("first call should be allowed")
	}
	for i := 1; i <= 10; i++ {
		l.Allow("c1", epoch.Add(time.Duration(i)*time.Second))
	}
	if !l.Allow("c1", epoch.Add(11*time.Second)) {
		t.Fatal("rejected calls must not extend the window")
	}
}

func TestSlidingWindowClientsAreIndependent(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)
	if !l.Allow("a", epoch) || !l.Allow("b", epoch) {
		t.Fatal("distinct clients should each get a slot")
	}
	if l.Allow("a", epoch) {
		t.Fatal("client a should be exhausted")
	}
}

func TestSlidingWindowConcurrentLastSlot(t *testing.T) {
	const limit = 5
	l := NewSlidingWindow(limit, time.Minute)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", epoch) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != limit {
		t.Fatalf("expected exactly %d admitted, got %d", limit, got)
	}
}

func TestSlidingWindowRetryAfter(t *testing.T) {
	l := NewSlidingWindow(2, 60*time.Second)
	l.Allow("c1", epoch)
	l.Allow("c1", epoch.Add(10*time.Second))

	wait := l.RetryAfter("c1", epoch.Add(20*time.Second))
	if wait <= 40*time.Second || wait > 41*time.Second {
		t.Fatalf("expected just over 40s, got %v", wait)
	}
	if !l.Allow("c1", epoch.Add(20*time.Second).Add(wait)) {
		t.Fatal("call after RetryAfter should be allowed")
	}
	if got := l.RetryAfter("fresh", epoch); got != 0 {
		t.Fatalf("expected 0 for unknown client, got %v", got)
	}
}

func TestSlidingWindowCleanup(t *testing.T) {
	l := NewSlidingWindow(3, time.Minute)
	l.Allow("old", epoch)
	l.Allow("new", epoch.Add(2*time.Minute))

	removed := l.Cleanup(epoch.Add(2 * time.Minute))
	if removed != 1 {
		t.Fatalf("expected 1 client removed, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked client, got %d", l.Len())
	}
}

func TestSlidingWindowOutOfOrderTimestamps(t *testing.T) {
	l := NewSlidingWindow(2, 10*time.Second)
	l.Allow("c1", epoch.Add(5*time.Second))
	l.Allow("c1", epoch)

	if !l.Allow("c1", epoch.Add(11*time.Second)) {
		t.Fatal("oldest stamp should have been pruned regardless of insertion order")
	}
}

func TestNilSlidingWindowAllowsAll(t *testing.T) {
	l := NewSlidingWindow(0, time.Minute)
	if l != nil {
		t.Fatal("expected nil limiter for zero limit")
	}
	if !l.Allow("c1", epoch) {
		t.Fatal("nil limiter should allow")
	}
	if l.Cleanup(epoch) != 0 || l.Len() != 0 || l.RetryAfter("c1", epoch) != 0 {
		t.Fatal("nil limiter helpers should be no-ops")
	}
}
