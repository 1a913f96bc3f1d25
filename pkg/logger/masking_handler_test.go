package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler_RedactsCredentialAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.Info("connecting",
		slog.String("bot_token", "123456:secret"),
		slog.String("dsn", "postgres://bot:pw@localhost/hermes"),
		slog.String("addr", "localhost:6379"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["bot_token"])
	assert.Equal(t, "***", entry["dsn"])
	assert.Equal(t, "localhost:6379", entry["addr"])
}

func TestMaskingHandler_RedactsWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewMaskingHandler(slog.NewJSONHandler(&buf, nil))
	log := slog.New(base.WithAttrs([]slog.Attr{slog.String("Token", "hidden")}))

	log.LogAttrs(context.Background(), slog.LevelInfo, "started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["Token"])
}
