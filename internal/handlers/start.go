// Package handlers contains the built-in command handlers registered at
// bootstrap.
package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// NewStartHandler greets the user. Profile records are created by the
// poller's user tracking before any handler runs.
func NewStartHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		greeting := "Welcome! Type /help to see what I can do."

		if svc.Users != nil {
			if _, err := svc.Users.Profile(ctx, req.UserID); err == nil {
				greeting = "Welcome back! Type /help to see what I can do."
			}
		}

		_, err := svc.Client.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: req.ChatID,
			Text:   greeting,
		})
		return err
	}
}
