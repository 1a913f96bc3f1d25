// Package idempotency guards update processing against duplicate delivery.
// Telegram may resend an update after a crash or an acknowledgement race,
// and a restarted process can fetch updates it already handled. The guard
// records every update id it has seen and reports repeats so the poller
// can skip them.
package idempotency

import (
	"context"
	"sync"
)

// Guard answers whether an update id has been processed before. Seen marks
// the id as processed as a side effect, so the first call for a given id
// returns false and every later call returns true.
type Guard interface {
	Seen(ctx context.Context, updateID int64) (bool, error)
}

// MemoryGuard remembers recent update ids in process memory. It keeps a
// bounded window of ids and evicts the oldest once the window is full.
type MemoryGuard struct {
	mu    sync.Mutex
	seen  map[int64]struct{}
	order []int64
	limit int
}

// DefaultWindow bounds how many update ids the memory guard retains.
const DefaultWindow = 1024

var _ Guard = (*MemoryGuard)(nil)

// NewMemoryGuard returns an in-memory Guard retaining the last limit ids.
func NewMemoryGuard(limit int) *MemoryGuard {
	if limit <= 0 {
		limit = DefaultWindow
	}

	return &MemoryGuard{
		seen:  make(map[int64]struct{}, limit),
		limit: limit,
	}
}

func (g *MemoryGuard) Seen(_ context.Context, updateID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[updateID]; ok {
		return true, nil
	}

	if len(g.order) >= g.limit {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.seen, oldest)
	}

	g.seen[updateID] = struct{}{}
	g.order = append(g.order, updateID)

	return false, nil
}
