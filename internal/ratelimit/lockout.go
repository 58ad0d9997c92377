package ratelimit

import (
	"sync"
	"time"
)

// Lockout blocks a key (client address plus username) for a cool-down
// period after too many failed credential checks inside a window.
type Lockout struct {
	mu            sync.Mutex
	entries       map[string]lockoutEntry
	maxFailures   int
	window        time.Duration
	blockFor      time.Duration
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type lockoutEntry struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// NewLockout returns nil, which never blocks, when any bound is not positive.
func NewLockout(maxFailures int, window, blockFor time.Duration) *Lockout {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockFor)
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &Lockout{
		entries:       make(map[string]lockoutEntry),
		maxFailures:   maxFailures,
		window:        window,
		blockFor:      blockFor,
		staleAfter:    staleAfter,
		cleanupEveryN: 64,
	}
}

// Blocked reports whether key is inside a cool-down at now.
func (l *Lockout) Blocked(key string, now time.Time) bool {
	if l == nil || key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		l.maybeCleanupLocked(now)
		return false
	}
	entry.lastSeen = now
	blocked := now.Before(entry.blockedUntil)
	if !blocked {
		entry.blockedUntil = time.Time{}
	}
	l.entries[key] = entry
	l.maybeCleanupLocked(now)
	return blocked
}

// Fail records one failed credential check for key.
func (l *Lockout) Fail(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockFor)
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
	entry.lastSeen = now
	l.entries[key] = entry
	l.maybeCleanupLocked(now)
}

// Succeed forgets key after a successful credential check.
func (l *Lockout) Succeed(key string) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *Lockout) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.staleAfter {
			delete(l.entries, key)
		}
	}
}
