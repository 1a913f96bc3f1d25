package handlers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/history"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

const logoCacheKey = "bot:logo"

// NewLogoHandler sends the configured logo image. The first send uploads
// the file; the returned handle is cached so later sends reference the
// remote copy instead of re-uploading.
func NewLogoHandler(logoPath string, log *slog.Logger) command.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, req *command.Request, svc *command.Services) error {
		if logoPath == "" {
			return reply(ctx, svc, req.ChatID, "No logo configured.")
		}

		photo, err := logoFile(ctx, svc, logoPath)
		if err != nil {
			log.Error("failed to read logo file", slog.String("path", logoPath), slog.Any("error", err))
			return reply(ctx, svc, req.ChatID, "The logo is unavailable right now.")
		}

		params := telegram.SendPhotoParams{ChatID: req.ChatID, Photo: photo}
		msg, err := svc.Client.SendPhoto(ctx, params)
		if err != nil {
			return err
		}

		if svc.Sent != nil && msg != nil {
			svc.Sent.Add(req.ChatID, msg.MessageID)
		}
		if svc.History != nil {
			svc.History.Push(req.UserID, history.Entry{Method: "sendPhoto", Payload: params})
		}
		cacheLogoHandle(ctx, svc, msg)
		return nil
	}
}

// cacheLogoHandle stores the provider-issued handle after an upload so the
// next /logo can skip re-uploading the content.
func cacheLogoHandle(ctx context.Context, svc *command.Services, msg *telegram.Message) {
	if svc.Files == nil || msg == nil || len(msg.Photo) == 0 {
		return
	}

	largest := msg.Photo[len(msg.Photo)-1]
	if largest.FileID != "" {
		_ = svc.Files.Set(ctx, logoCacheKey, largest.FileID)
	}
}

func logoFile(ctx context.Context, svc *command.Services, logoPath string) (*telegram.InputFile, error) {
	if svc.Files != nil {
		if fileID, err := svc.Files.Get(ctx, logoCacheKey); err == nil && fileID != "" {
			return &telegram.InputFile{FileID: fileID}, nil
		}
	}

	content, err := os.ReadFile(logoPath)
	if err != nil {
		return nil, err
	}

	return &telegram.InputFile{
		Bytes:    content,
		FileName: filepath.Base(logoPath),
	}, nil
}
