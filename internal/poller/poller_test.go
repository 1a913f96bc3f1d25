package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/idempotency"
	"github.com/Proton-105/hermes-bot/internal/ratelimit"
	"github.com/Proton-105/hermes-bot/internal/telegram"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	offsets []int64
	cancel  context.CancelFunc
	err     error
}

func (s *fakeSource) GetUpdates(_ context.Context, params telegram.GetUpdatesParams) ([]telegram.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offsets = append(s.offsets, params.Offset)

	if len(s.batches) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		if s.cancel != nil {
			s.cancel()
		}
		return nil, nil
	}

	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	handled []string
	err     error
}

func (d *recordingDispatcher) IsCommand(text string) bool {
	return len(text) > 0 && text[0] == '/'
}

func (d *recordingDispatcher) Handle(_ context.Context, _, _ int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled = append(d.handled, text)
	return d.err
}

type recordingForms struct {
	mu     sync.Mutex
	inputs []string
	err    error
}

func (f *recordingForms) ProcessInput(_ context.Context, _ int64, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
	return true, f.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []telegram.SendMessageParams
}

func (n *recordingNotifier) SendMessage(_ context.Context, params telegram.SendMessageParams) (*telegram.Message, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, params)
	return &telegram.Message{MessageID: int64(len(n.sent))}, nil
}

func textUpdate(id, chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: id,
		Message: &telegram.Message{
			MessageID: id,
			From:      &telegram.User{ID: chatID, FirstName: "Ann"},
			Chat:      &telegram.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runPoller(t *testing.T, source *fakeSource, p *Poller) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	source.cancel = cancel

	require.NoError(t, p.Run(ctx))
}

func TestPoller_RoutesCommandsAndFormInput(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		textUpdate(1, 10, "/start"),
		textUpdate(2, 10, "Ann"),
	}}}
	dispatcher := &recordingDispatcher{}
	forms := &recordingForms{}

	p := New(source, dispatcher, forms, nil, nil, nil, nil, nil, Config{}, testLogger())
	runPoller(t, source, p)

	assert.Equal(t, []string{"/start"}, dispatcher.handled)
	assert.Equal(t, []string{"Ann"}, forms.inputs)
}

func TestPoller_AdvancesOffsetPastHighestSeen(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{
		{textUpdate(7, 10, "hi"), textUpdate(5, 10, "hello")},
		{textUpdate(8, 10, "again")},
	}}

	p := New(source, &recordingDispatcher{}, &recordingForms{}, nil, nil, nil, nil, nil, Config{}, testLogger())
	runPoller(t, source, p)

	// First call starts at zero, then one past the max of each batch.
	require.GreaterOrEqual(t, len(source.offsets), 3)
	assert.Equal(t, int64(0), source.offsets[0])
	assert.Equal(t, int64(8), source.offsets[1])
	assert.Equal(t, int64(9), source.offsets[2])
}

func TestPoller_HandlerErrorDoesNotStopLoop(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		textUpdate(1, 10, "/boom"),
		textUpdate(2, 10, "/boom"),
	}}}
	dispatcher := &recordingDispatcher{err: errors.New("handler failed")}

	p := New(source, dispatcher, &recordingForms{}, nil, nil, nil, nil, nil, Config{}, testLogger())
	runPoller(t, source, p)

	assert.Len(t, dispatcher.handled, 2)
}

func TestPoller_SkipsDuplicateUpdates(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{
		{textUpdate(1, 10, "/start")},
		{textUpdate(1, 10, "/start")},
	}}
	dispatcher := &recordingDispatcher{}
	guard := idempotency.NewMemoryGuard(16)

	p := New(source, dispatcher, &recordingForms{}, guard, nil, nil, nil, nil, Config{}, testLogger())
	runPoller(t, source, p)

	assert.Len(t, dispatcher.handled, 1)
}

func TestPoller_RateLimitsPerUser(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		textUpdate(1, 10, "/one"),
		textUpdate(2, 10, "/two"),
		textUpdate(3, 10, "/three"),
	}}}
	dispatcher := &recordingDispatcher{}
	limiter := ratelimit.NewMemoryLimiter(testLogger())

	cfg := Config{RateLimit: 2, RateWindow: time.Minute}
	p := New(source, dispatcher, &recordingForms{}, nil, limiter, nil, nil, nil, cfg, testLogger())
	runPoller(t, source, p)

	assert.Len(t, dispatcher.handled, 2)
}

func TestPoller_ReportsFormStorageFailureToUser(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		textUpdate(1, 10, "Ann"),
	}}}
	forms := &recordingForms{err: errors.New("redis: connection refused")}
	notifier := &recordingNotifier{}
	errs := apperrors.NewHandler(testLogger(), false)

	p := New(source, &recordingDispatcher{}, forms, nil, nil, nil, errs, notifier, Config{}, testLogger())
	runPoller(t, source, p)

	// The backend failure is classified as a storage error and the user
	// gets its message, not the raw redis error.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(10), notifier.sent[0].ChatID)
	assert.Contains(t, notifier.sent[0].Text, "temporary problem")
}

func TestPoller_PassesFormAppErrorsThroughUnwrapped(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		textUpdate(1, 10, "six"),
	}}}
	forms := &recordingForms{err: apperrors.NewValidationError("The rating must be a number from 1 to 5.")}
	notifier := &recordingNotifier{}
	errs := apperrors.NewHandler(testLogger(), false)

	p := New(source, &recordingDispatcher{}, forms, nil, nil, nil, errs, notifier, Config{}, testLogger())
	runPoller(t, source, p)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Text, "1 to 5")
}

func TestPoller_StopsOnUnauthorized(t *testing.T) {
	source := &fakeSource{err: &telegram.Error{Kind: telegram.KindUnauthorized, Method: "getUpdates"}}

	p := New(source, &recordingDispatcher{}, &recordingForms{}, nil, nil, nil, nil, nil, Config{}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)

	var apiErr *telegram.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, telegram.KindUnauthorized, apiErr.Kind)
}

func TestPoller_IgnoresUpdatesWithoutMessage(t *testing.T) {
	source := &fakeSource{batches: [][]telegram.Update{{
		{UpdateID: 1},
		textUpdate(2, 10, "/start"),
	}}}
	dispatcher := &recordingDispatcher{}

	p := New(source, dispatcher, &recordingForms{}, nil, nil, nil, nil, nil, Config{}, testLogger())
	runPoller(t, source, p)

	assert.Equal(t, []string{"/start"}, dispatcher.handled)
}
