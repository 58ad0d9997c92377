// Package ratelimit holds process-local request limiters. State lives in
// memory only and is not shared between server instances.
package ratelimit

import (
	"sync"
	"time"
)

const defaultCleanupEveryN = 256

// SlidingWindow admits at most limit requests per client in any window of
// the configured length.
type SlidingWindow struct {
	mu            sync.Mutex
	limit         int
	window        time.Duration
	clients       map[string][]time.Time
	opCount       int
	cleanupEveryN int
}

// NewSlidingWindow returns a limiter admitting limit requests per window.
// It returns nil, which admits everything, when either bound is not positive.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &SlidingWindow{
		limit:         limit,
		window:        window,
		clients:       make(map[string][]time.Time),
		cleanupEveryN: defaultCleanupEveryN,
	}
}

// Allow records a request from clientID at now and reports whether it is
// admitted. Timestamps older than now-window are dropped first; the request
// is admitted if fewer than limit remain.
func (l *SlidingWindow) Allow(clientID string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := prune(l.clients[clientID], now.Add(-l.window))
	allowed := len(stamps) < l.limit
	if allowed {
		stamps = insertSorted(stamps, now)
	}
	if len(stamps) == 0 {
		delete(l.clients, clientID)
	} else {
		l.clients[clientID] = stamps
	}
	l.maybeCleanupLocked(now)
	return allowed
}

// RetryAfter returns how long clientID must wait before a request at now
// would be admitted. It is zero when a slot is free.
func (l *SlidingWindow) RetryAfter(clientID string, now time.Time) time.Duration {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := prune(l.clients[clientID], now.Add(-l.window))
	if len(stamps) < l.limit {
		return 0
	}
	// The window is inclusive, so the slot frees just after oldest+window.
	oldest := stamps[len(stamps)-l.limit]
	return oldest.Add(l.window).Sub(now) + time.Nanosecond
}

// Cleanup drops expired timestamps for every client and forgets clients
// with none left. It returns the number of clients removed.
func (l *SlidingWindow) Cleanup(now time.Time) int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cleanupLocked(now)
}

// Len returns the number of tracked clients.
func (l *SlidingWindow) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *SlidingWindow) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	l.cleanupLocked(now)
}

func (l *SlidingWindow) cleanupLocked(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0
	for id, stamps := range l.clients {
		stamps = prune(stamps, cutoff)
		if len(stamps) == 0 {
			delete(l.clients, id)
			removed++
			continue
		}
		l.clients[id] = stamps
	}
	return removed
}

// prune keeps timestamps at or after cutoff. Stamps are kept sorted, so the
// kept ones form a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0:0], stamps[i:]...)
}

// insertSorted appends t, keeping stamps ordered even when callers read the
// clock before contending for the lock.
func insertSorted(stamps []time.Time, t time.Time) []time.Time {
	stamps = append(stamps, t)
	for i := len(stamps) - 1; i > 0 && stamps[i].Before(stamps[i-1]); i-- {
		stamps[i], stamps[i-1] = stamps[i-1], stamps[i]
	}
	return stamps
}
