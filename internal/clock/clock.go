// Package clock abstracts wall-clock reads and timers so that expiry,
// rate limiting and scheduled cleanup can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source injected into the store, server and sweeper.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once d has elapsed.
	// If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
