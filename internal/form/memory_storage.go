package form

import (
	"context"
	"sync"
)

// MemoryStorage is the default in-memory Storage implementation. Session
// state is lost on restart, which is the documented runtime model.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStorage returns an empty in-memory session table.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[int64]*Session),
	}
}

// Get returns the session for a chat or ErrSessionNotFound.
func (m *MemoryStorage) Get(ctx context.Context, chatID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[chatID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *session
	copied.Answers = copyAnswers(session.Answers)
	return &copied, nil
}

// Set saves the session for a chat.
func (m *MemoryStorage) Set(ctx context.Context, chatID int64, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	copied.Answers = copyAnswers(session.Answers)
	m.sessions[chatID] = &copied
	return nil
}

// Delete removes the session for a chat.
func (m *MemoryStorage) Delete(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

// All returns a snapshot of every stored session.
func (m *MemoryStorage) All(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		copied := *session
		copied.Answers = copyAnswers(session.Answers)
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

func copyAnswers(answers map[string]string) map[string]string {
	if answers == nil {
		return nil
	}

	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return copied
}
