package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingEngine is returned by Validate when no database connection string is configured.
var ErrMissingEngine = errors.New("database.engine is required (set ENGINE)")

// Config holds all application configuration.
type Config struct {
	Database struct {
		Engine       string        `yaml:"engine"`
		Table        string        `yaml:"table"`
		Retention    time.Duration `yaml:"retention"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
		MaxOpenConns int           `yaml:"max_open_conns"`
	} `yaml:"database"`
	Stream struct {
		URL            string        `yaml:"url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	} `yaml:"stream"`
	Regression struct {
		Target     string `yaml:"target"`
		Reference  string `yaml:"reference"`
		Degenerate string `yaml:"degenerate"`
	} `yaml:"regression"`
	Monitor struct {
		Symbol       string  `yaml:"symbol"`
		ThresholdPct float64 `yaml:"threshold_pct"`
		StateFile    string  `yaml:"state_file"`
	} `yaml:"monitor"`
	Schedule struct {
		PruneCron      string `yaml:"prune_cron"`
		RegressionCron string `yaml:"regression_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken      string  `yaml:"bot_token"`
		ChatID        string  `yaml:"chat_id"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
		Polling       bool    `yaml:"polling"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "auto", "console" or "json"
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// A missing file is not an error: defaults plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENGINE"); v != "" {
		c.Database.Engine = v
	}
	if v := os.Getenv("TABLE_NAME"); v != "" {
		c.Database.Table = v
	}
	if v := os.Getenv("RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse RETENTION: %w", err)
		}
		c.Database.Retention = d
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		c.Stream.URL = v
	}
	if v := os.Getenv("MONITOR_THRESHOLD_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse MONITOR_THRESHOLD_PCT: %w", err)
		}
		c.Monitor.ThresholdPct = f
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Table == "" {
		c.Database.Table = "futures_trades"
	}
	if c.Database.Retention == 0 {
		c.Database.Retention = 60 * time.Minute
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 30 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 4
	}
	if c.Stream.URL == "" {
		c.Stream.URL = "wss://fstream.binance.com/stream"
	}
	if c.Regression.Target == "" {
		c.Regression.Target = "ETHUSDT"
	}
	if c.Regression.Reference == "" {
		c.Regression.Reference = "BTCUSDT"
	}
	if len(c.Stream.Symbols) == 0 {
		c.Stream.Symbols = []string{c.Regression.Target, c.Regression.Reference}
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = 5 * time.Second
	}
	if c.Regression.Degenerate == "" {
		c.Regression.Degenerate = "reject"
	}
	if c.Monitor.Symbol == "" {
		c.Monitor.Symbol = c.Regression.Target
	}
	if c.Monitor.ThresholdPct == 0 {
		c.Monitor.ThresholdPct = 0.00001
	}
	if c.Schedule.PruneCron == "" {
		c.Schedule.PruneCron = "0 * * * * *"
	}
	if c.Schedule.RegressionCron == "" {
		c.Schedule.RegressionCron = "30 */5 * * * *"
	}
	if c.Telegram.RatePerMinute == 0 {
		c.Telegram.RatePerMinute = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Database.Engine == "" {
		return ErrMissingEngine
	}
	if c.Database.Retention <= 0 {
		return fmt.Errorf("database.retention must be positive")
	}
	if strings.EqualFold(strings.TrimSpace(c.Regression.Target), strings.TrimSpace(c.Regression.Reference)) {
		return fmt.Errorf("regression.target and regression.reference must differ")
	}
	switch c.Regression.Degenerate {
	case "reject", "zero":
	default:
		return fmt.Errorf("regression.degenerate must be \"reject\" or \"zero\", got %q", c.Regression.Degenerate)
	}
	if c.Monitor.ThresholdPct < 0 {
		return fmt.Errorf("monitor.threshold_pct must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	switch c.Log.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("log.format must be auto, console or json, got %q", c.Log.Format)
	}
	return nil
}
