package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"FuturesSentinel/internal/calculator"
	"FuturesSentinel/internal/config"
	"FuturesSentinel/internal/logging"
	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/store"
)

var configPath string

// rootCmd is the base command for the sentinel CLI
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Futures trade recorder and reference-adjusted price monitor",
	Long: `sentinel records Binance futures trades to a SQL table, alerts on price
changes of the monitored symbol, prunes rows outside the retention window and
periodically regresses the target symbol on a reference symbol to report the
asset-specific residual price.

Examples:
  sentinel run
  sentinel regress
  ENGINE=sqlite://trades.db sentinel count`,
	SilenceUsage: true,
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to the YAML config file (env CONFIG_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("sentinel failed")
		os.Exit(1)
	}
}

// loadConfig reads and validates the config, then configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	st, err := store.Open(ctx, cfg.Database.Engine, store.Options{
		Table:        cfg.Database.Table,
		QueryTimeout: cfg.Database.QueryTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	return st, nil
}

// newNotifier returns the Telegram notifier when a bot token is configured.
// The second result is nil when messages only go to the log.
func newNotifier(cfg *config.Config) (notifier.Notifier, *notifier.TelegramNotifier) {
	if cfg.Telegram.BotToken == "" {
		log.Info().Msg("telegram not configured, notifications go to the log")
		return notifier.LogNotifier{}, nil
	}
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.RatePerMinute)
	return tn, tn
}

func newAdjuster(cfg *config.Config) (*calculator.Adjuster, error) {
	policy, err := calculator.ParsePolicy(cfg.Regression.Degenerate)
	if err != nil {
		return nil, err
	}
	return calculator.NewAdjuster(policy), nil
}
