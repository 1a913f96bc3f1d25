// Package history keeps a per-user stack of past outbound RPC calls and
// replays the most recent one on demand. Replay repeats the original send;
// it is not an undo.
package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// DefaultMaxDepth caps a user's stack when the config leaves it unset.
const DefaultMaxDepth = 50

// Entry records one replayable outbound call.
type Entry struct {
	Method  string
	Payload any
}

// replayableMethods is the set of provider methods Back will re-invoke.
// Popping an entry with any other method is a silent no-op; pushing such
// entries is a caller bug.
var replayableMethods = map[string]bool{
	"sendMessage":   true,
	"sendPhoto":     true,
	"deleteMessage": true,
}

// Stack holds the per-user action history. Each user's list grows on Push
// up to the depth cap, shrinks by one on Back, and is cleared by Delete.
type Stack struct {
	mu       sync.Mutex
	entries  map[int64][]Entry
	invoker  telegram.Invoker
	maxDepth int
	log      *slog.Logger
}

// NewStack builds an empty history table replaying through invoker.
func NewStack(invoker telegram.Invoker, maxDepth int, log *slog.Logger) *Stack {
	if log == nil {
		log = slog.Default()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &Stack{
		entries:  make(map[int64][]Entry),
		invoker:  invoker,
		maxDepth: maxDepth,
		log:      log,
	}
}

// Push appends entry to the user's stack, dropping the oldest entry once
// the depth cap is reached.
func (s *Stack) Push(userID int64, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[userID]
	if len(list) >= s.maxDepth {
		copy(list, list[1:])
		list = list[:len(list)-1]
	}
	s.entries[userID] = append(list, entry)
}

// Back pops the user's most recent entry and re-invokes its method with
// the stored payload. An empty stack is a no-op, as is a popped entry
// whose method is not replayable. Returns whether a call was replayed.
func (s *Stack) Back(ctx context.Context, userID int64) (bool, error) {
	entry, ok := s.pop(userID)
	if !ok {
		return false, nil
	}

	if !replayableMethods[entry.Method] {
		s.log.Warn("skipping non-replayable history entry",
			slog.Int64("user_id", userID),
			slog.String("method", entry.Method),
		)
		return false, nil
	}

	s.log.Info("replaying last action",
		slog.Int64("user_id", userID),
		slog.String("method", entry.Method),
	)

	if _, err := s.invoker.Invoke(ctx, entry.Method, entry.Payload); err != nil {
		return false, err
	}
	return true, nil
}

// Delete clears the user's stack entirely.
func (s *Stack) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Depth returns the number of entries currently stored for the user.
func (s *Stack) Depth(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[userID])
}

func (s *Stack) pop(userID int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[userID]
	if len(list) == 0 {
		return Entry{}, false
	}

	entry := list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(s.entries, userID)
	} else {
		s.entries[userID] = list
	}
	return entry, true
}
