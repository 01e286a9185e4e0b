package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler receives each raw message read from the stream.
type Handler func(ctx context.Context, raw []byte) error

// BinanceClient reads aggTrade events from the Binance USDⓈ-M futures combined stream.
type BinanceClient struct {
	BaseURL        string // e.g. wss://fstream.binance.com/stream
	Symbols        []string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// NewBinanceClient creates a client for the given symbols.
func NewBinanceClient(baseURL string, symbols []string, reconnectDelay time.Duration) *BinanceClient {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &BinanceClient{
		BaseURL:        baseURL,
		Symbols:        symbols,
		ReconnectDelay: reconnectDelay,
		Dialer:         websocket.DefaultDialer,
	}
}

// StreamURL returns the combined-stream URL for the configured symbols.
func (c *BinanceClient) StreamURL() (string, error) {
	if len(c.Symbols) == 0 {
		return "", errors.New("no symbols to subscribe")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	names := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		names[i] = strings.ToLower(s) + "@aggTrade"
	}
	q := u.Query()
	q.Set("streams", strings.Join(names, "/"))
	u.RawQuery = q.Encode()
	// Binance expects literal separators in the streams parameter.
	u.RawQuery = strings.NewReplacer("%2F", "/", "%40", "@").Replace(u.RawQuery)
	return u.String(), nil
}

// Run connects and dispatches messages to handle until ctx is cancelled,
// reconnecting after ReconnectDelay whenever the connection drops.
// Handler errors are logged and do not close the connection.
func (c *BinanceClient) Run(ctx context.Context, handle Handler) error {
	wsURL, err := c.StreamURL()
	if err != nil {
		return err
	}

	for {
		if err := c.session(ctx, wsURL, handle); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Dur("retry_in", c.ReconnectDelay).Msg("binance futures stream disconnected")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("binance futures stream stopped")
			return ctx.Err()
		case <-time.After(c.ReconnectDelay):
		}
	}
}

func (c *BinanceClient) session(ctx context.Context, wsURL string, handle Handler) error {
	conn, _, err := c.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	log.Info().Strs("symbols", c.Symbols).Msg("connected to binance futures websocket")

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := handle(ctx, raw); err != nil {
			log.Error().Err(err).Msg("handle trade")
		}
	}
}
