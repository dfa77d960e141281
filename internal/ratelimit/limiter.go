// Package ratelimit provides the fixed-window rate limiter guarding the
// collect endpoint.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/crivus/quiziq/internal/adapter"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a keyed request may proceed. The limit is supplied
// per call so callers can read it from live policy instead of a snapshot.
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Allow records a hit against key and reports whether it fits the limit
	Allow(key string, limit int, window time.Duration) Result

	// Close stops background cleanup
	Close()
}

// CollectKey builds the rate limit key for a collect request.
func CollectKey(origin, ip, sid string) string {
	return fmt.Sprintf("collect:%s:%s:%s", origin, ip, sid)
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is an in-process fixed-window limiter. Windows reset lazily
// on access; a background ticker evicts stale keys so the map does not grow
// unbounded under rotating session ids.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	clock   adapter.Clock
	done    chan struct{}
	once    sync.Once
}

// NewMemoryLimiter creates a memory limiter and starts its cleanup loop.
func NewMemoryLimiter(clock adapter.Clock) *MemoryLimiter {
	l := &MemoryLimiter{
		entries: make(map[string]*windowEntry),
		clock:   clock,
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a hit against key and reports whether it fits the limit
func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) Result {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(window)}
		l.entries[key] = entry
	}

	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}
	}

	entry.count++
	return Result{
		Allowed:   true,
		Remaining: limit - entry.count,
		ResetAt:   entry.resetAt,
	}
}

// Close stops background cleanup
func (l *MemoryLimiter) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := l.clock.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

func (l *MemoryLimiter) evictExpired() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}
