// Package poller runs the long-poll update loop: it fetches update
// batches from the Bot API, deduplicates and rate-limits them, and routes
// each message to the command dispatcher or the form engine.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Proton-105/hermes-bot/internal/command"
	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/form"
	"github.com/Proton-105/hermes-bot/internal/idempotency"
	"github.com/Proton-105/hermes-bot/internal/ratelimit"
	"github.com/Proton-105/hermes-bot/internal/telegram"
	"github.com/Proton-105/hermes-bot/internal/user"
	"github.com/Proton-105/hermes-bot/pkg/logger"
	"github.com/Proton-105/hermes-bot/pkg/metrics"
)

const (
	// DefaultLimit is the batch size requested per getUpdates call.
	DefaultLimit = 100
	// DefaultPollTimeout is the long-poll hold passed to the provider.
	DefaultPollTimeout = 30 * time.Second
	// fetchFailureBackoff spaces out retries when getUpdates itself fails.
	fetchFailureBackoff = 3 * time.Second
)

// UpdateSource fetches update batches. Satisfied by telegram.Client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, params telegram.GetUpdatesParams) ([]telegram.Update, error)
}

// Dispatcher routes command text. Satisfied by command.Registry.
type Dispatcher interface {
	IsCommand(text string) bool
	Handle(ctx context.Context, chatID, userID int64, text string) error
}

// FormRouter consumes non-command text. Satisfied by form.Engine.
type FormRouter interface {
	ProcessInput(ctx context.Context, chatID int64, text string) (bool, error)
}

// Notifier sends the user-facing message when a handler fails. Satisfied
// by telegram.Client.
type Notifier interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

// Config holds the poll loop settings.
type Config struct {
	Limit       int
	PollTimeout time.Duration
	// RateLimit allows this many updates per user inside RateWindow.
	// Zero disables per-user limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Poller owns the single-worker update loop. Updates within a batch are
// processed in arrival order; the next batch is requested with an offset
// just past the highest update id seen so far.
type Poller struct {
	source   UpdateSource
	commands Dispatcher
	forms    FormRouter
	guard    idempotency.Guard
	limiter  ratelimit.Limiter
	users    *user.Service
	errs     *apperrors.Handler
	notifier Notifier
	cfg      Config
	log      *slog.Logger

	offset int64
}

// New builds a Poller. guard, limiter, users, errs, and notifier are
// optional; a nil value disables the corresponding step.
func New(
	source UpdateSource,
	commands Dispatcher,
	forms FormRouter,
	guard idempotency.Guard,
	limiter ratelimit.Limiter,
	users *user.Service,
	errs *apperrors.Handler,
	notifier Notifier,
	cfg Config,
	log *slog.Logger,
) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	return &Poller{
		source:   source,
		commands: commands,
		forms:    forms,
		guard:    guard,
		limiter:  limiter,
		users:    users,
		errs:     errs,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// Run polls until the context is cancelled. It returns nil on cancellation
// and an error only when the API reports the token as invalid, which no
// amount of polling will fix.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("update poller started",
		slog.Int("limit", p.cfg.Limit),
		slog.Duration("poll_timeout", p.cfg.PollTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("update poller stopped")
			return nil
		default:
		}

		updates, err := p.source.GetUpdates(ctx, telegram.GetUpdatesParams{
			Offset:         p.offset,
			Limit:          p.cfg.Limit,
			Timeout:        int(p.cfg.PollTimeout.Seconds()),
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("update poller stopped")
				return nil
			}

			var apiErr *telegram.Error
			if errors.As(err, &apiErr) && apiErr.Kind == telegram.KindUnauthorized {
				return fmt.Errorf("poll updates: %w", err)
			}

			p.log.Error("failed to fetch updates", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchFailureBackoff):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= p.offset {
				p.offset = upd.UpdateID + 1
			}
			p.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate processes one update; a failing handler is logged and never
// stops the loop.
func (p *Poller) handleUpdate(ctx context.Context, upd telegram.Update) {
	ctx, correlationID := logger.WithCorrelationID(ctx)
	log := p.log.With(
		slog.Int64("update_id", upd.UpdateID),
		slog.String("correlation_id", correlationID),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered while handling update",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			metrics.RecordUpdate("panic")
			metrics.RecordError("panic", "critical")
		}
	}()

	if upd.Message == nil || upd.Message.Chat == nil {
		metrics.RecordUpdate("ignored")
		return
	}

	msg := upd.Message
	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}

	if p.guard != nil {
		seen, err := p.guard.Seen(ctx, upd.UpdateID)
		if err != nil {
			// Treat a broken guard backend as not seen; processing twice
			// beats dropping the update.
			log.Warn("duplicate guard unavailable", slog.Any("error", err))
		} else if seen {
			log.Info("skipping duplicate update")
			metrics.RecordUpdate("duplicate")
			return
		}
	}

	if p.limiter != nil && p.cfg.RateLimit > 0 {
		result, err := p.limiter.Check(ctx, strconv.FormatInt(userID, 10), p.cfg.RateLimit, p.cfg.RateWindow)
		if err != nil {
			log.Warn("rate limiter unavailable", slog.Any("error", err))
		} else if !result.Allowed {
			log.Info("rate limited update", slog.Int64("user_id", userID))
			metrics.RecordUpdate("rate_limited")
			return
		}
	}

	p.trackUser(ctx, msg.From, log)

	if err := p.route(ctx, chatID, userID, msg.Text); err != nil {
		p.reportFailure(ctx, chatID, err, log)
		metrics.RecordUpdate("error")
		return
	}

	metrics.RecordUpdate("ok")
}

func (p *Poller) route(ctx context.Context, chatID, userID int64, text string) error {
	if p.commands != nil && p.commands.IsCommand(text) {
		return p.commands.Handle(ctx, chatID, userID, text)
	}

	if p.forms != nil {
		handled, err := p.forms.ProcessInput(ctx, chatID, text)
		if err != nil {
			var apiErr *telegram.Error
			var appErr *apperrors.AppError
			if errors.As(err, &apiErr) || errors.As(err, &appErr) {
				// Sends and completion callbacks carry their own classification.
				return err
			}
			return apperrors.NewStorageError(err)
		}
		if !handled {
			p.log.Debug("no consumer for message", slog.Int64("chat_id", chatID))
		}
	}

	return nil
}

// reportFailure funnels a handler error through the central reporter and
// tells the user something went wrong. Both steps are best effort.
func (p *Poller) reportFailure(ctx context.Context, chatID int64, err error, log *slog.Logger) {
	log.Error("failed to handle update",
		slog.Int64("chat_id", chatID),
		slog.Any("error", err),
	)

	if p.errs == nil {
		return
	}

	var apiErr *telegram.Error
	if errors.As(err, &apiErr) {
		err = apperrors.NewTelegramError(apiErr)
	}

	userMsg, _ := p.errs.Handle(ctx, err)
	if userMsg == "" || p.notifier == nil {
		return
	}

	if _, sendErr := p.notifier.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: userMsg}); sendErr != nil {
		log.Warn("failed to notify user about error", slog.Any("error", sendErr))
	}
}

// trackUser keeps the user directory current without blocking the loop on
// directory failures.
func (p *Poller) trackUser(ctx context.Context, sender *telegram.User, log *slog.Logger) {
	if p.users == nil || sender == nil || sender.IsBot {
		return
	}

	if _, err := p.users.GetOrCreate(ctx, sender); err != nil {
		log.Warn("failed to record user", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		return
	}

	go func(id int64) {
		_ = p.users.UpdateLastActive(context.Background(), id)
	}(sender.ID)
}

var _ Dispatcher = (*command.Registry)(nil)
var _ FormRouter = (*form.Engine)(nil)
