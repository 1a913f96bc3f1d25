// Package telegram implements a typed client for the Telegram Bot API:
// request encoding (JSON or multipart), response classification, and a
// bounded retry policy for rate-limited calls.
package telegram

import (
	"encoding/json"
	"io"
)

// Update is one inbound event fetched from the provider.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message carries the fields of an incoming or sent chat message that the
// runtime cares about.
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      *Chat       `json:"chat,omitempty"`
	Text      string      `json:"text,omitempty"`
	Date      int64       `json:"date,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// PhotoSize is one rendition of a sent photo; the last element is the
// largest.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// User identifies the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// InputFile references file content for upload. Exactly one of FileID,
// Bytes, or Reader should be set. FileID reuses a handle the provider
// already holds and never triggers a multipart upload on its own.
type InputFile struct {
	FileID   string
	Bytes    []byte
	Reader   io.Reader
	FileName string
}

// NeedsUpload reports whether the file carries local content that must be
// sent as a binary multipart part.
func (f *InputFile) NeedsUpload() bool {
	if f == nil {
		return false
	}
	return len(f.Bytes) > 0 || f.Reader != nil
}

// MarshalJSON renders the file as its remote handle when one is present.
// Upload content is never representable in a JSON body; the encoder picks
// multipart before marshalling in that case.
func (f InputFile) MarshalJSON() ([]byte, error) {
	if f.FileID != "" {
		return json.Marshal(f.FileID)
	}
	return []byte("null"), nil
}

const defaultFileName = "file"

func (f *InputFile) partFileName() string {
	if f.FileName != "" {
		return f.FileName
	}
	return defaultFileName
}

// GetUpdatesParams configures the long-poll fetch.
type GetUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SendMessageParams configures a plain text send.
type SendMessageParams struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendPhotoParams configures a photo send. Photo may hold either a remote
// handle or raw upload content; the encoder chooses the wire format.
type SendPhotoParams struct {
	ChatID  int64      `json:"chat_id"`
	Photo   *InputFile `json:"photo"`
	Caption string     `json:"caption,omitempty"`
}

// DeleteMessageParams identifies a sent message to remove.
type DeleteMessageParams struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// ResponseParameters is the optional diagnostics block of a failed call.
type ResponseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

// envelope is the generic wire response shape shared by every method.
// OK is a pointer so that a body missing the field entirely can be told
// apart from ok=false.
type envelope struct {
	OK          *bool               `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	Description string              `json:"description"`
	ErrorCode   int                 `json:"error_code"`
	Parameters  *ResponseParameters `json:"parameters"`
}
