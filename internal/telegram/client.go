package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Proton-105/hermes-bot/pkg/metrics"
)

const (
	// DefaultAttempts bounds the retry loop when the config leaves it unset.
	DefaultAttempts = 3
	// defaultRetryBackoff is used when a 429 arrives without retry_after.
	defaultRetryBackoff = time.Second
)

// Config holds the static client settings sourced from application config.
type Config struct {
	BaseURL  string
	Token    string
	Attempts int
	Timeout  time.Duration
}

// Client executes typed Bot API calls. It holds no session state; it is
// safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	attempts int
	http     *http.Client
	log      *slog.Logger
}

// Invoker is the call surface consumed by collaborators. Satisfied by
// Client; tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// New creates a Client from cfg.
func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &Client{
		baseURL:  baseURL,
		token:    cfg.Token,
		attempts: attempts,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

// Invoke encodes params, executes the method, and classifies the response.
// Rate-limited calls are retried up to the configured attempt count,
// honoring retry_after when the provider supplies it. Every other error
// kind terminates immediately; the last classified error is returned.
func (c *Client) Invoke(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, contentType, err := encodeParams(params)
	if err != nil {
		return nil, newFileError(method, err)
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		result, callErr := c.call(ctx, method, body, contentType)
		if callErr == nil {
			metrics.RecordRPCRequest(method, "ok")
			return result, nil
		}
		metrics.RecordRPCRequest(method, string(callErr.Kind))

		lastErr = callErr
		if !callErr.Retryable() || attempt == c.attempts {
			break
		}

		backoff := callErr.RetryAfter
		if backoff <= 0 {
			backoff = defaultRetryBackoff
		}

		metrics.RecordRPCRetry(method)
		c.log.Warn("rate limited, retrying",
			slog.String("method", method),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return nil, newNetworkError(method, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

func (c *Client) call(ctx context.Context, method string, body []byte, contentType string) (json.RawMessage, *Error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newNetworkError(method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newNetworkError(method, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(method, err)
	}

	return classify(method, raw)
}

// classify maps the raw response body onto a result or exactly one error
// kind.
func classify(method string, raw []byte) (json.RawMessage, *Error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, newInvalidResponseError(method, err)
	}
	if env.OK == nil {
		return nil, newInvalidResponseError(method, fmt.Errorf("response missing ok field"))
	}

	if *env.OK {
		return env.Result, nil
	}

	switch {
	case env.ErrorCode == http.StatusUnauthorized || env.ErrorCode == http.StatusForbidden:
		return nil, newUnauthorizedError(method, &env)
	case env.ErrorCode == http.StatusTooManyRequests:
		return nil, newRateLimitError(method, &env)
	case env.Description != "":
		return nil, newMethodError(method, &env)
	default:
		return nil, newInvalidResponseError(method, fmt.Errorf("error response without description (code %d)", env.ErrorCode))
	}
}

// GetMe fetches the bot's own account record; used by health checks.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	result, err := c.Invoke(ctx, "getMe", struct{}{})
	if err != nil {
		return nil, err
	}

	var me User
	if err := json.Unmarshal(result, &me); err != nil {
		return nil, newParseError("getMe", err)
	}
	return &me, nil
}

// GetUpdates performs the long-poll fetch of pending updates.
func (c *Client) GetUpdates(ctx context.Context, params GetUpdatesParams) ([]Update, error) {
	result, err := c.Invoke(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, newParseError("getUpdates", err)
	}
	return updates, nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	return c.invokeMessage(ctx, "sendMessage", params)
}

// SendPhoto sends a photo, either by remote handle or by uploading content.
func (c *Client) SendPhoto(ctx context.Context, params SendPhotoParams) (*Message, error) {
	return c.invokeMessage(ctx, "sendPhoto", params)
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, params DeleteMessageParams) error {
	_, err := c.Invoke(ctx, "deleteMessage", params)
	return err
}

func (c *Client) invokeMessage(ctx context.Context, method string, params any) (*Message, error) {
	result, err := c.Invoke(ctx, method, params)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return nil, newParseError(method, err)
	}
	return &msg, nil
}

// HealthCheck verifies API reachability with a getMe call.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.GetMe(ctx)
	return err
}
