package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/hermes-bot/internal/domain"
	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/repository"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

type stubRepo struct {
	user    *domain.User
	findErr error
	created []*domain.User
}

func (r *stubRepo) FindByTelegramID(context.Context, int64) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.user, nil
}

func (r *stubRepo) Create(_ context.Context, user *domain.User) error {
	r.created = append(r.created, user)
	return nil
}

func (r *stubRepo) UpdateLastActiveAt(context.Context, int64) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_GetOrCreateCreatesMissingUser(t *testing.T) {
	repo := &stubRepo{findErr: repository.ErrUserNotFound}
	svc := NewService(repo, testLogger())

	got, err := svc.GetOrCreate(context.Background(), &telegram.User{ID: 42, FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TelegramID)
	require.Len(t, repo.created, 1)
}

func TestService_WrapsRepositoryFailures(t *testing.T) {
	repo := &stubRepo{findErr: errors.New("pq: connection reset")}
	svc := NewService(repo, testLogger())

	_, err := svc.GetOrCreate(context.Background(), &telegram.User{ID: 42})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E200", appErr.Code)

	_, err = svc.Profile(context.Background(), 42)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E200", appErr.Code)
}

func TestService_ProfileKeepsNotFoundSentinel(t *testing.T) {
	repo := &stubRepo{findErr: repository.ErrUserNotFound}
	svc := NewService(repo, testLogger())

	_, err := svc.Profile(context.Background(), 42)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}
