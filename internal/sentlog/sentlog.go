// Package sentlog records the ids of messages the bot has sent, per chat,
// so that cleanup operations can find the most recent ones.
package sentlog

import "sync"

// DefaultKeep bounds how many sent-message ids are remembered per chat.
const DefaultKeep = 20

// Record identifies one message the bot sent.
type Record struct {
	ChatID    int64
	MessageID int64
}

// Log is a bounded, per-chat record of outbound messages.
type Log struct {
	mu      sync.Mutex
	keep    int
	records map[int64][]Record
}

// New returns an empty Log keeping at most keep records per chat.
func New(keep int) *Log {
	if keep <= 0 {
		keep = DefaultKeep
	}

	return &Log{
		keep:    keep,
		records: make(map[int64][]Record),
	}
}

// Add remembers a sent message, evicting the oldest record past the cap.
func (l *Log) Add(chatID, messageID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.records[chatID]
	if len(list) >= l.keep {
		copy(list, list[1:])
		list = list[:len(list)-1]
	}
	l.records[chatID] = append(list, Record{ChatID: chatID, MessageID: messageID})
}

// PopLast removes and returns the most recent record for a chat.
func (l *Log) PopLast(chatID int64) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.records[chatID]
	if len(list) == 0 {
		return Record{}, false
	}

	record := list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(l.records, chatID)
	} else {
		l.records[chatID] = list
	}
	return record, true
}

// Len returns the number of records kept for a chat.
func (l *Log) Len(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records[chatID])
}
