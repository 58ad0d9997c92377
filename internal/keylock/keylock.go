// Package keylock provides per-key reader/writer locking over a fixed set
// of lock stripes. Two keys may share a stripe; a key never maps to more
// than one.
package keylock

import (
	"hash/fnv"
	"sync"
)

// DefaultStripes is the stripe count used by New when n <= 0.
const DefaultStripes = 256

// Striped maps keys onto a fixed array of RW mutexes.
type Striped struct {
	stripes []sync.RWMutex
}

// New returns a Striped lock set with n stripes.
func New(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]sync.RWMutex, n)}
}

// Lock acquires the write lock for key and returns its release func.
func (s *Striped) Lock(key string) func() {
	mu := s.stripe(key)
	mu.Lock()
	return mu.Unlock
}

// RLock acquires the read lock for key and returns its release func.
func (s *Striped) RLock(key string) func() {
	mu := s.stripe(key)
	mu.RLock()
	return mu.RUnlock
}

func (s *Striped) stripe(key string) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}
