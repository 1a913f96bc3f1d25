package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MemoryCleanable is satisfied by limiters that can drop stale windows.
type MemoryCleanable interface {
	Cleanup(maxAge time.Duration)
}

// Cleaner periodically drops stale in-memory rate-limit windows so the
// per-user map does not grow without bound. Redis keys expire on their own.
type Cleaner struct {
	limiter  MemoryCleanable
	log      *slog.Logger
	maxAge   time.Duration
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(limiter MemoryCleanable, log *slog.Logger, maxAge, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		limiter:  limiter,
		log:      log,
		maxAge:   maxAge,
		interval: interval,
	}
}

// Run starts the cleaner loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.limiter == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", fmt.Sprint(ctx.Err())))
			return
		case <-ticker.C:
			c.limiter.Cleanup(c.maxAge)
		}
	}
}
