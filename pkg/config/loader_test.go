package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "development.yaml"), []byte(body), 0o644))
	t.Chdir(dir)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	writeConfigFile(t, "bot:\n  token: \"123:abc\"\n")

	cfg, v, err := Load()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "https://api.telegram.org", cfg.Bot.APIBaseURL)
	assert.Equal(t, "/", cfg.Bot.CommandPrefix)
	assert.Equal(t, 100, cfg.Bot.PollLimit)
	assert.Equal(t, 30*time.Second, cfg.Bot.PollTimeout)
	assert.Equal(t, 50, cfg.Bot.HistoryDepth)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	writeConfigFile(t, `
bot:
  token: "123:abc"
  command_prefix: "!"
  poll_limit: 10
  attempts: 5
redis:
  enabled: true
  client:
    addr: "localhost:6379"
postgres:
  enabled: true
  user: hermes
  name: hermes
`)

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "!", cfg.Bot.CommandPrefix)
	assert.Equal(t, 10, cfg.Bot.PollLimit)
	assert.Equal(t, 5, cfg.Bot.Attempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Client.Addr)
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=hermes")
}

func TestLoad_RejectsMissingToken(t *testing.T) {
	writeConfigFile(t, "bot:\n  command_prefix: \"/\"\n")

	_, _, err := Load()
	require.Error(t, err)
}
