package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Proton-105/hermes-bot/internal/command"
	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/form"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// NewFormHandler starts the form named by the first argument. An unknown
// form name is reported to the chat, never propagated as a failure.
// Starting a form while another is in progress fails; the session must be
// finished or cancelled first.
func NewFormHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if svc.Forms == nil {
			log.Error("form engine not configured for form handler")
			return nil
		}

		if len(req.Args) == 0 {
			return reply(ctx, svc, req.ChatID, formUsage(svc.Forms))
		}

		if svc.Forms.InProgress(ctx, req.ChatID) {
			return apperrors.NewFormError("form already in progress for chat")
		}

		formName := req.Args[0]
		if err := svc.Forms.Start(ctx, req.ChatID, formName); err != nil {
			if errors.Is(err, form.ErrUnknownForm) {
				return reply(ctx, svc, req.ChatID,
					fmt.Sprintf("I don't know a form called %q.\n%s", formName, formUsage(svc.Forms)))
			}
			return err
		}
		return nil
	}
}

// NewCancelHandler clears the chat's in-progress form session, if any.
func NewCancelHandler(log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if svc.Forms == nil {
			log.Error("form engine not configured for cancel handler")
			return nil
		}

		cancelled, err := svc.Forms.Cancel(ctx, req.ChatID)
		if err != nil {
			return err
		}

		text := "Nothing to cancel."
		if cancelled {
			text = "Form cancelled."
		}
		return reply(ctx, svc, req.ChatID, text)
	}
}

func formUsage(engine *form.Engine) string {
	names := engine.Definitions()
	sort.Strings(names)
	if len(names) == 0 {
		return "No forms are configured."
	}
	return "Usage: /form <name>. Available forms: " + strings.Join(names, ", ")
}

func reply(ctx context.Context, svc *command.Services, chatID int64, text string) error {
	_, err := svc.Client.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: text})
	return err
}
