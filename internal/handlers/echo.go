package handlers

import (
	"context"
	"strings"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/history"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// NewEchoHandler sends the command arguments back to the chat and records
// the send in the user's action history so /back can repeat it.
func NewEchoHandler() command.Handler {
	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		text := strings.Join(req.Args, " ")
		if text == "" {
			text = "Nothing to echo. Usage: /echo <text>"
		}

		params := telegram.SendMessageParams{ChatID: req.ChatID, Text: text}
		msg, err := svc.Client.SendMessage(ctx, params)
		if err != nil {
			return err
		}

		if svc.Sent != nil && msg != nil {
			svc.Sent.Add(req.ChatID, msg.MessageID)
		}
		if svc.History != nil && len(req.Args) > 0 {
			svc.History.Push(req.UserID, history.Entry{Method: "sendMessage", Payload: params})
		}
		return nil
	}
}
