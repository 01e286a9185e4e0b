package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuturesSentinel/internal/config"
	"FuturesSentinel/internal/notifier"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_MissingEngine(t *testing.T) {
	t.Setenv("ENGINE", "")
	_, err := execute(t, "count")
	assert.ErrorIs(t, err, config.ErrMissingEngine)
}

func TestCLI_CountRegressPrune(t *testing.T) {
	t.Setenv("ENGINE", "sqlite://"+filepath.Join(t.TempDir(), "trades.db"))
	t.Setenv("TABLE_NAME", "cli_trades")

	out, err := execute(t, "count")
	require.NoError(t, err)
	assert.Contains(t, out, "Table cli_trades is empty.")

	out, err = execute(t, "regress")
	require.NoError(t, err)
	assert.Contains(t, out, "Trades table is empty")

	out, err = execute(t, "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Old trades deleted: 0")
}

func TestNewNotifier(t *testing.T) {
	cfg := &config.Config{}
	n, tn := newNotifier(cfg)
	assert.IsType(t, notifier.LogNotifier{}, n)
	assert.Nil(t, tn)

	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	n, tn = newNotifier(cfg)
	require.NotNil(t, tn)
	assert.Same(t, tn, n)
	assert.Equal(t, "42", tn.ChatID)
}

func TestNewAdjuster(t *testing.T) {
	cfg := &config.Config{}
	cfg.Regression.Degenerate = "zero"
	adj, err := newAdjuster(cfg)
	require.NoError(t, err)
	assert.EqualValues(t, "zero", adj.Estimator.Policy)

	cfg.Regression.Degenerate = "bogus"
	_, err = newAdjuster(cfg)
	assert.Error(t, err)
}
