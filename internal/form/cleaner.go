package form

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes form sessions that have been idle longer than the TTL,
// bounding the session table in long-running deployments.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.ttl <= 0 || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("form session cleaner stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	sessions, err := c.storage.All(ctx)
	if err != nil {
		c.log.Error("form session cleaner failed to list sessions", slog.Any("error", err))
		return
	}

	cutoff := time.Now().UTC().Add(-c.ttl)
	for _, session := range sessions {
		if ctx.Err() != nil {
			return
		}
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := c.storage.Delete(ctx, session.ChatID); err != nil {
			c.log.Error("form session cleaner failed to delete session",
				slog.Int64("chat_id", session.ChatID),
				slog.Any("error", err),
			)
			continue
		}

		c.log.Info("expired idle form session",
			slog.Int64("chat_id", session.ChatID),
			slog.String("form", session.FormName),
		)
	}
}
