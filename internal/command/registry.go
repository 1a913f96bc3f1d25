// Package command holds the command registry and dispatcher: it parses
// incoming text into a command name plus positional arguments and invokes
// the matching handler.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Proton-105/hermes-bot/internal/filecache"
	"github.com/Proton-105/hermes-bot/internal/form"
	"github.com/Proton-105/hermes-bot/internal/history"
	"github.com/Proton-105/hermes-bot/internal/sentlog"
	"github.com/Proton-105/hermes-bot/internal/telegram"
	"github.com/Proton-105/hermes-bot/internal/user"
	"github.com/Proton-105/hermes-bot/pkg/metrics"
)

// DefaultPrefix is the command marker used when the config leaves it unset.
const DefaultPrefix = "/"

// Messenger is the outbound call surface handlers use to reply.
type Messenger interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	SendPhoto(ctx context.Context, params telegram.SendPhotoParams) (*telegram.Message, error)
	DeleteMessage(ctx context.Context, params telegram.DeleteMessageParams) error
}

// Request describes one parsed command invocation.
type Request struct {
	ChatID int64
	UserID int64
	Text   string
	Args   []string
}

// Services bundles the collaborators handlers may call. Fields left nil
// disable the corresponding feature.
type Services struct {
	Client  Messenger
	Forms   *form.Engine
	History *history.Stack
	Users   *user.Service
	Files   filecache.Cache
	Sent    *sentlog.Log
	Log     *slog.Logger
}

// Handler processes one command invocation.
type Handler func(ctx context.Context, req *Request, svc *Services) error

// Registry maps lowercase command names to handlers and dispatches parsed
// invocations. The last registration for a name wins.
type Registry struct {
	mu       sync.RWMutex
	prefix   string
	commands map[string]Handler
	services *Services
	log      *slog.Logger
}

// NewRegistry builds an empty Registry bound to the given collaborators.
func NewRegistry(prefix string, services *Services, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Registry{
		prefix:   prefix,
		commands: make(map[string]Handler),
		services: services,
		log:      log,
	}
}

// Register stores a handler under the case-folded name, overwriting any
// previous registration.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(name)] = h
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// IsCommand reports whether text should be routed through the dispatcher.
func (r *Registry) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), r.prefix)
}

// Handle parses text and invokes the matching handler. Text without the
// command prefix is a no-op. An unknown command sends a fixed help pointer
// to the chat and succeeds; handler failures propagate unmodified.
func (r *Registry) Handle(ctx context.Context, chatID, userID int64, text string) error {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, r.prefix) {
		return nil
	}

	tokens := strings.Fields(trimmed)
	name := strings.ToLower(strings.TrimPrefix(tokens[0], r.prefix))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	args := tokens[1:]

	handler := r.lookup(name)
	if handler == nil {
		r.log.Info("unknown command", slog.String("command", name), slog.Int64("chat_id", chatID))
		return r.sendUnknown(ctx, chatID, name)
	}

	req := &Request{
		ChatID: chatID,
		UserID: userID,
		Text:   text,
		Args:   args,
	}

	start := time.Now()
	err := handler(ctx, req, r.services)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordCommand(name, status, time.Since(start))

	return err
}

func (r *Registry) lookup(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

func (r *Registry) sendUnknown(ctx context.Context, chatID int64, name string) error {
	if r.services == nil || r.services.Client == nil {
		return nil
	}

	_, err := r.services.Client.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Unknown command %s%s. See %shelp for the list of commands.", r.prefix, name, r.prefix),
	})
	if err != nil {
		// The unknown-command notice is best effort; a failed send must
		// not fail the update.
		r.log.Warn("failed to send unknown-command notice", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}

	return nil
}
