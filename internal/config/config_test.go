package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// restoring it afterwards (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// unsetEnv clears keys for the duration of the test, restoring them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		prev, ok := os.LookupEnv(k)
		require.NoError(t, os.Unsetenv(k))
		t.Cleanup(func() {
			if ok {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

var envKeys = []string{
	"ENGINE", "TABLE_NAME", "RETENTION", "STREAM_URL", "MONITOR_THRESHOLD_PCT",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "METRICS_ADDR", "LOG_LEVEL",
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, envKeys...)
	chdir(t, t.TempDir())

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, "futures_trades", cfg.Database.Table)
	assert.Equal(t, 60*time.Minute, cfg.Database.Retention)
	assert.Equal(t, "ETHUSDT", cfg.Regression.Target)
	assert.Equal(t, "BTCUSDT", cfg.Regression.Reference)
	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT"}, cfg.Stream.Symbols)
	assert.Equal(t, "ETHUSDT", cfg.Monitor.Symbol)
	assert.Equal(t, 0.00001, cfg.Monitor.ThresholdPct)
	assert.Equal(t, "reject", cfg.Regression.Degenerate)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingEngine)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	yml := `
database:
  engine: sqlite://from-yaml.db
  table: trades_yaml
  retention: 30m
regression:
  degenerate: zero
monitor:
  threshold_pct: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("ENGINE", "postgres://u:p@localhost:5432/postgres?sslmode=disable")
	t.Setenv("RETENTION", "90m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres://u:p@localhost:5432/postgres?sslmode=disable", cfg.Database.Engine)
	assert.Equal(t, "trades_yaml", cfg.Database.Table)
	assert.Equal(t, 90*time.Minute, cfg.Database.Retention)
	assert.Equal(t, "zero", cfg.Regression.Degenerate)
	assert.Equal(t, 0.5, cfg.Monitor.ThresholdPct)
}

func TestLoad_DotEnv(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENGINE=sqlite://dotenv.db\nTABLE_NAME=dotenv_trades\n"), 0o644))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite://dotenv.db", cfg.Database.Engine)
	assert.Equal(t, "dotenv_trades", cfg.Database.Table)
}

func TestLoad_BadEnvValue(t *testing.T) {
	unsetEnv(t, envKeys...)
	chdir(t, t.TempDir())
	t.Setenv("RETENTION", "an hour")

	_, err := Load("missing.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Database.Engine = "sqlite://x.db"
		c.applyDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Regression.Reference = c.Regression.Target
	assert.Error(t, c.Validate())

	c = valid()
	c.Regression.Target = "ethusdt"
	c.Regression.Reference = "ETHUSDT "
	assert.Error(t, c.Validate(), "symbols differing only in case are the same series")

	c = valid()
	c.Regression.Degenerate = "nan"
	assert.Error(t, c.Validate())

	c = valid()
	c.Telegram.BotToken = "token"
	assert.Error(t, c.Validate())

	c = valid()
	c.Log.Format = "xml"
	assert.Error(t, c.Validate())
}
