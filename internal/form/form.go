// Package form manages multi-step form definitions and per-chat sessions.
// A session advances one step for every plain-text input routed to it and
// invokes the form's completion callback once the last step is answered.
package form

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/hermes-bot/internal/telegram"
)

var (
	// ErrUnknownForm indicates a start request for an unregistered form.
	ErrUnknownForm = errors.New("unknown form")
	// ErrSessionNotFound indicates that a chat has no active session.
	ErrSessionNotFound = errors.New("form session not found")
)

// Sender is the outbound surface the engine uses to deliver prompts.
type Sender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

// Step is one prompt in a form and the key its answer is stored under.
type Step struct {
	Prompt string
	Key    string
}

// CompletionFunc receives the collected answers once every step is done.
type CompletionFunc func(ctx context.Context, chatID int64, answers map[string]string, sender Sender) error

// Definition describes a linear, fixed-step form. Immutable once
// registered.
type Definition struct {
	Name       string
	Steps      []Step
	OnComplete CompletionFunc
}

// Session is the in-progress state of one chat answering a form.
type Session struct {
	ChatID    int64             `json:"chat_id"`
	FormName  string            `json:"form_name"`
	StepIndex int               `json:"step_index"`
	Answers   map[string]string `json:"answers"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Storage defines the persistence contract for form sessions.
type Storage interface {
	// Get returns the session for a chat or ErrSessionNotFound.
	Get(ctx context.Context, chatID int64) (*Session, error)
	// Set saves the session for a chat.
	Set(ctx context.Context, chatID int64, session *Session) error
	// Delete removes the session for a chat.
	Delete(ctx context.Context, chatID int64) error
	// All returns every stored session.
	All(ctx context.Context) ([]*Session, error)
}
