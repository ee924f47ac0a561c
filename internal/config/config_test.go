package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults apply when the file is missing", func(t *testing.T) {
		// Given: no config file
		path := filepath.Join(t.TempDir(), "missing.yml")

		// When: loading
		conf, err := Load(path)

		// Then: the reference defaults are used
		require.NoError(t, err)
		assert.Equal(t, 27015, conf.Server.Port)
		assert.Equal(t, 60*time.Second, conf.Server.RoundDuration())
		assert.Equal(t, 512, conf.Server.ReadBuffer)
		assert.Equal(t, PlayAgainAsk, conf.Server.PlayAgain)
		assert.Equal(t, ":27015", conf.Server.GetAddr())
		assert.Equal(t, "127.0.0.1:27015", conf.Client.GetAddr())
		assert.False(t, conf.Redis.Enabled)
	})

	t.Run("Reads yaml and env overrides", func(t *testing.T) {
		// Given: a config file and an env override
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
log-level: debug
server:
  port: 4000
  round-seconds: 30
  play-again: never
redis:
  enabled: true
  host: cache
`), 0o600))
		t.Setenv("ROUND_SECONDS", "15")

		// When: loading
		conf, err := Load(path)

		// Then: file values and env overrides are both honoured
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, 4000, conf.Server.Port)
		assert.Equal(t, 15*time.Second, conf.Server.RoundDuration())
		assert.Equal(t, PlayAgainNever, conf.Server.PlayAgain)
		assert.Equal(t, "cache:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Rejects invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  play-again: maybe\n"), 0o600))

		_, err := Load(path)

		assert.ErrorIs(t, err, ErrInvalidPlayAgain)
	})
}

func TestConfig_Validate(t *testing.T) {
	conf := &Config{
		Server: Server{Port: 0, RoundSeconds: 60, PlayAgain: PlayAgainAsk},
		Client: Client{Port: 27015},
	}
	assert.ErrorIs(t, conf.Validate(), ErrInvalidPort)

	conf.Server.Port = 27015
	conf.Server.RoundSeconds = 0
	assert.ErrorIs(t, conf.Validate(), ErrInvalidRound)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
