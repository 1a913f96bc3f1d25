package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// NewBackHandler replays the user's most recent recorded action. Replay
// repeats the original send; it does not undo it (see /undo).
func NewBackHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if svc.History == nil {
			log.Error("history stack not configured for back handler")
			return nil
		}

		replayed, err := svc.History.Back(ctx, req.UserID)
		if err != nil {
			return err
		}
		if replayed {
			return nil
		}
		return reply(ctx, svc, req.ChatID, "Nothing to repeat.")
	}
}

// NewUndoHandler deletes the bot's most recently sent message in the chat.
// Unlike /back, this is a true inverse of the last send.
func NewUndoHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if svc.Sent == nil {
			log.Error("sent log not configured for undo handler")
			return nil
		}

		record, ok := svc.Sent.PopLast(req.ChatID)
		if !ok {
			return reply(ctx, svc, req.ChatID, "Nothing to undo.")
		}

		if err := svc.Client.DeleteMessage(ctx, telegram.DeleteMessageParams{
			ChatID:    record.ChatID,
			MessageID: record.MessageID,
		}); err != nil {
			return err
		}
		return nil
	}
}
