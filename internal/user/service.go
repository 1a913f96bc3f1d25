package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/hermes-bot/internal/domain"
	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/repository"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

// Service provides business operations over user profiles.
type Service struct {
	repo repository.UserRepository
	log  *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(repo repository.UserRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetOrCreate fetches a profile by telegram id or creates one from the
// sender data when missing.
func (s *Service) GetOrCreate(ctx context.Context, sender *telegram.User) (*domain.User, error) {
	if sender == nil {
		return nil, errors.New("sender is nil")
	}

	user, err := s.repo.FindByTelegramID(ctx, sender.ID)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, repository.ErrUserNotFound) {
		s.logError("get_or_create.find", sender.ID, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	now := time.Now().UTC()
	newUser := &domain.User{
		TelegramID:   sender.ID,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		Username:     sender.Username,
		LastActiveAt: now,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		s.logError("get_or_create.create", sender.ID, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	s.log.Info("created new user", slog.Int64("telegram_id", sender.ID))
	return newUser, nil
}

// Profile returns the stored profile for the given telegram id. A missing
// profile surfaces as repository.ErrUserNotFound; any other failure is
// wrapped for the reporting pipeline.
func (s *Service) Profile(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		s.logError("profile", telegramID, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return user, nil
}

// UpdateLastActive refreshes the last_active_at field for the user.
func (s *Service) UpdateLastActive(ctx context.Context, telegramID int64) error {
	if err := s.repo.UpdateLastActiveAt(ctx, telegramID); err != nil {
		s.logError("update_last_active", telegramID, err)
		return err
	}

	return nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
