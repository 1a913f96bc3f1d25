package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, attempts int, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		BaseURL:  srv.URL,
		Token:    "test-token",
		Attempts: attempts,
		Timeout:  5 * time.Second,
	}, testLogger())
}

func TestInvoke_Success(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/bottest-token/sendMessage"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"text":"hi"}}`))
	})

	msg, err := client.SendMessage(context.Background(), SendMessageParams{ChatID: 1, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.MessageID)
	assert.Equal(t, "hi", msg.Text)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedKind ErrorKind
	}{
		{
			name:         "unauthorized 401",
			body:         `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
			expectedKind: KindUnauthorized,
		},
		{
			name:         "forbidden 403",
			body:         `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked"}`,
			expectedKind: KindUnauthorized,
		},
		{
			name:         "rate limited",
			body:         `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":4}}`,
			expectedKind: KindRateLimit,
		},
		{
			name:         "method rejection",
			body:         `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			expectedKind: KindMethod,
		},
		{
			name:         "missing ok field",
			body:         `{"result":true}`,
			expectedKind: KindInvalidResponse,
		},
		{
			name:         "non-json body",
			body:         `<html>bad gateway</html>`,
			expectedKind: KindInvalidResponse,
		},
		{
			name:         "error without description",
			body:         `{"ok":false,"error_code":418}`,
			expectedKind: KindInvalidResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := classify("sendMessage", []byte(tc.body))
			require.NotNil(t, err)
			assert.Equal(t, tc.expectedKind, err.Kind)
			assert.Equal(t, "sendMessage", err.Method)
		})
	}
}

func TestClassify_RetryAfterCarried(t *testing.T) {
	_, err := classify("sendMessage", []byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":4}}`))
	require.NotNil(t, err)
	assert.Equal(t, 4*time.Second, err.RetryAfter)
}

func TestInvoke_RateLimitRetriedToAttemptCap(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
	})
	// Zero out the waiting between attempts to keep the test fast.
	client.http.Timeout = time.Second

	start := time.Now()
	_, err := client.Invoke(context.Background(), "sendMessage", SendMessageParams{ChatID: 1, Text: "x"})
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, KindRateLimit, rpcErr.Kind)
	assert.Equal(t, int64(3), calls.Load())
	// Two backoff waits at the 1s default.
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
}

func TestInvoke_NonRetryableKindsMakeExactlyOneCall(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedKind ErrorKind
	}{
		{
			name:         "unauthorized",
			body:         `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
			expectedKind: KindUnauthorized,
		},
		{
			name:         "method error",
			body:         `{"ok":false,"error_code":400,"description":"Bad Request: message text is empty"}`,
			expectedKind: KindMethod,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int64
			client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Invoke(context.Background(), "sendMessage", SendMessageParams{ChatID: 1})
			require.Error(t, err)

			var rpcErr *Error
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tc.expectedKind, rpcErr.Kind)
			assert.Equal(t, int64(1), calls.Load())
		})
	}
}

func TestInvoke_NetworkErrorNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(Config{BaseURL: srv.URL, Token: "t", Attempts: 3, Timeout: time.Second}, testLogger())

	_, err := client.Invoke(context.Background(), "getMe", struct{}{})
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, KindNetwork, rpcErr.Kind)
}

func TestInvoke_EncodingSelection(t *testing.T) {
	var contentType string
	var formPhotoName string
	var formChatID string

	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(contentType, "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			formChatID = r.FormValue("chat_id")
			if files := r.MultipartForm.File["photo"]; len(files) > 0 {
				formPhotoName = files[0].Filename
			}
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	t.Run("plain params produce json", func(t *testing.T) {
		_, err := client.SendMessage(context.Background(), SendMessageParams{ChatID: 5, Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("remote handle stays json", func(t *testing.T) {
		_, err := client.SendPhoto(context.Background(), SendPhotoParams{
			ChatID: 5,
			Photo:  &InputFile{FileID: "remote-handle"},
		})
		require.NoError(t, err)
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("upload content produces multipart", func(t *testing.T) {
		_, err := client.SendPhoto(context.Background(), SendPhotoParams{
			ChatID: 5,
			Photo:  &InputFile{Bytes: []byte{0x89, 0x50}, FileName: "chart.png"},
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(contentType, "multipart/form-data"))
		assert.Equal(t, "chart.png", formPhotoName)
		assert.Equal(t, "5", formChatID)
	})
}

func TestGetUpdates_ParsesBatch(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		var params GetUpdatesParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, int64(42), params.Offset)

		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":42,"message":{"message_id":1,"chat":{"id":10},"from":{"id":20},"text":"/start"}},
			{"update_id":43,"message":{"message_id":2,"chat":{"id":10},"from":{"id":20},"text":"hello"}}
		]}`))
	})

	updates, err := client.GetUpdates(context.Background(), GetUpdatesParams{Offset: 42, Limit: 100, Timeout: 30})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(43), updates[1].UpdateID)
	assert.Equal(t, "hello", updates[1].Message.Text)
}
