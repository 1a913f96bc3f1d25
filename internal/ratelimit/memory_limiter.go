package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter is a sliding-window Limiter kept entirely in process
// memory. It is the default backend and the fallback when Redis is down.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	log     *slog.Logger
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an in-memory limiter implementation.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		log:     log,
	}
}

// Check enforces a sliding-window limit for the provided key.
func (m *MemoryLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := pruneBefore(m.windows[key], windowStart)
	count := len(recent)

	allowed := count < limit
	if allowed {
		recent = append(recent, now)
		count++
	}
	m.windows[key] = recent

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	// A denied check is a successful evaluation; errors are reserved for
	// backend failures.
	return &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}, nil
}

// Cleanup removes windows whose newest entry is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entries := range m.windows {
		if len(entries) == 0 || entries[len(entries)-1].Before(cutoff) {
			delete(m.windows, key)
		}
	}
}

func pruneBefore(entries []time.Time, windowStart time.Time) []time.Time {
	first := 0
	for first < len(entries) && entries[first].Before(windowStart) {
		first++
	}
	if first == 0 {
		return entries
	}

	copy(entries, entries[first:])
	return entries[:len(entries)-first]
}
