package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Proton-105/hermes-bot/internal/telegram"
	"github.com/Proton-105/hermes-bot/pkg/metrics"
)

// Engine holds the form registry and drives per-chat sessions through
// their steps.
type Engine struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	storage     Storage
	sender      Sender
	log         *slog.Logger
}

// NewEngine builds an Engine with an empty registry.
func NewEngine(storage Storage, sender Sender, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		definitions: make(map[string]*Definition),
		storage:     storage,
		sender:      sender,
		log:         log,
	}
}

// Register adds a definition under its case-folded name; the last
// registration for a name wins.
func (e *Engine) Register(def Definition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copied := def
	e.definitions[strings.ToLower(def.Name)] = &copied
}

// Definitions returns the registered form names in no particular order.
func (e *Engine) Definitions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.definitions))
	for name := range e.definitions {
		names = append(names, name)
	}
	return names
}

// Start creates a session at step zero for the named form and sends the
// first prompt. Returns ErrUnknownForm for an unregistered name.
func (e *Engine) Start(ctx context.Context, chatID int64, formName string) error {
	def := e.definition(formName)
	if def == nil {
		return fmt.Errorf("%w: %s", ErrUnknownForm, formName)
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("form %s has no steps", formName)
	}

	session := &Session{
		ChatID:    chatID,
		FormName:  strings.ToLower(formName),
		StepIndex: 0,
		Answers:   make(map[string]string, len(def.Steps)),
		UpdatedAt: time.Now().UTC(),
	}
	if err := e.storage.Set(ctx, chatID, session); err != nil {
		return fmt.Errorf("save form session: %w", err)
	}

	e.log.Info("form started", slog.Int64("chat_id", chatID), slog.String("form", session.FormName))

	return e.sendPrompt(ctx, chatID, def.Steps[0].Prompt)
}

// Cancel removes the chat's session if one exists. Cancelling an absent
// session is a no-op.
func (e *Engine) Cancel(ctx context.Context, chatID int64) (bool, error) {
	_, err := e.storage.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := e.storage.Delete(ctx, chatID); err != nil {
		return false, fmt.Errorf("delete form session: %w", err)
	}

	e.log.Info("form cancelled", slog.Int64("chat_id", chatID))
	return true, nil
}

// InProgress reports whether the chat currently has an active session.
func (e *Engine) InProgress(ctx context.Context, chatID int64) bool {
	_, err := e.storage.Get(ctx, chatID)
	return err == nil
}

// ProcessInput records text as the answer to the chat's current step. With
// no active session it is a no-op and reports handled=false. Advancing past
// the last step invokes the form's completion callback and removes the
// session.
func (e *Engine) ProcessInput(ctx context.Context, chatID int64, text string) (handled bool, err error) {
	session, err := e.storage.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	def := e.definition(session.FormName)
	if def == nil {
		// The definition was replaced or removed while the session was in
		// flight; the session is unrecoverable.
		e.log.Warn("session references unregistered form",
			slog.Int64("chat_id", chatID),
			slog.String("form", session.FormName),
		)
		if delErr := e.storage.Delete(ctx, chatID); delErr != nil {
			return false, delErr
		}
		return false, nil
	}

	if session.StepIndex < 0 || session.StepIndex >= len(def.Steps) {
		// A persisted session can outlive its definition; a redeploy that
		// shortened the form leaves the stored step out of range.
		e.log.Warn("session step out of range for form",
			slog.Int64("chat_id", chatID),
			slog.String("form", session.FormName),
			slog.Int("step", session.StepIndex),
			slog.Int("steps", len(def.Steps)),
		)
		if delErr := e.storage.Delete(ctx, chatID); delErr != nil {
			return false, delErr
		}
		return false, nil
	}

	if session.Answers == nil {
		session.Answers = make(map[string]string, len(def.Steps))
	}
	session.Answers[def.Steps[session.StepIndex].Key] = text

	if session.StepIndex+1 < len(def.Steps) {
		session.StepIndex++
		session.UpdatedAt = time.Now().UTC()
		if err := e.storage.Set(ctx, chatID, session); err != nil {
			return true, fmt.Errorf("save form session: %w", err)
		}
		return true, e.sendPrompt(ctx, chatID, def.Steps[session.StepIndex].Prompt)
	}

	// Last step answered: tear the session down before completion so that
	// a failing callback cannot leave the chat stuck mid-form.
	if err := e.storage.Delete(ctx, chatID); err != nil {
		return true, fmt.Errorf("delete form session: %w", err)
	}

	e.log.Info("form completed",
		slog.Int64("chat_id", chatID),
		slog.String("form", session.FormName),
		slog.Int("answers", len(session.Answers)),
	)
	metrics.RecordFormCompletion(session.FormName)

	if def.OnComplete == nil {
		return true, nil
	}
	return true, def.OnComplete(ctx, chatID, session.Answers, e.sender)
}

// ActiveSessions returns the number of sessions currently stored.
func (e *Engine) ActiveSessions(ctx context.Context) int {
	sessions, err := e.storage.All(ctx)
	if err != nil {
		return 0
	}
	return len(sessions)
}

func (e *Engine) definition(name string) *Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.definitions[strings.ToLower(name)]
}

func (e *Engine) sendPrompt(ctx context.Context, chatID int64, prompt string) error {
	if e.sender == nil {
		return nil
	}

	_, err := e.sender.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: prompt})
	if err != nil {
		return fmt.Errorf("send form prompt: %w", err)
	}
	return nil
}
