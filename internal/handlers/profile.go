package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/repository"
)

// NewProfileHandler returns a handler for the /profile command.
func NewProfileHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if svc.Users == nil {
			return reply(ctx, svc, req.ChatID, "Profiles are not enabled on this bot.")
		}

		profile, err := svc.Users.Profile(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return reply(ctx, svc, req.ChatID, "No profile yet. Say /start first.")
			}

			log.Error("profile handler failed to fetch user",
				slog.Int64("user_id", req.UserID),
				slog.Any("error", err),
			)
			return reply(ctx, svc, req.ChatID, "Unable to load your profile right now. Please try again later.")
		}

		message := fmt.Sprintf(
			"Name: %s\nJoined: %s\nLast active: %s",
			profile.DisplayName(),
			profile.CreatedAt.Format("January 2, 2006"),
			profile.LastActiveAt.Format("January 2, 2006 15:04 MST"),
		)
		return reply(ctx, svc, req.ChatID, message)
	}
}
