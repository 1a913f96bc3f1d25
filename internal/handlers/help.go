package handlers

import (
	"context"
	"strings"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// NewHelpHandler lists the registered commands. The name source is passed
// as a function so the handler can be registered before the registry is
// fully populated.
func NewHelpHandler(names func() []string) command.Handler {
	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, name := range names() {
			b.WriteString("/")
			b.WriteString(name)
			b.WriteString("\n")
		}

		_, err := svc.Client.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: req.ChatID,
			Text:   strings.TrimRight(b.String(), "\n"),
		})
		return err
	}
}
