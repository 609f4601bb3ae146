package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

const (
	DefaultStreamURL = "wss://ws.finnhub.io"

	reconnectDelay = 5 * time.Second
)

// SubscriptionSource enumerates the symbols to subscribe. It is re-evaluated
// on every (re)connect: the vendor keeps no state across connections.
type SubscriptionSource func(ctx context.Context) []string

// Streamer holds one outbound websocket to the Finnhub trade stream and
// writes every received tick into the live price cache. On any error it
// drops the connection, sleeps, and reconnects with a fresh subscription set.
type Streamer struct {
	url     string
	cache   domain.MarketCache
	symbols SubscriptionSource
	logger  *slog.Logger

	reconnectDelay time.Duration
}

// StreamURL builds the authenticated websocket endpoint.
func StreamURL(apiKey string) string {
	return DefaultStreamURL + "?token=" + apiKey
}

func NewStreamer(wsURL string, cache domain.MarketCache, symbols SubscriptionSource) *Streamer {
	return &Streamer{
		url:            wsURL,
		cache:          cache,
		symbols:        symbols,
		logger:         slog.Default().With("component", "streamer"),
		reconnectDelay: reconnectDelay,
	}
}

// WithReconnectDelay shortens the retry sleep. Used by tests.
func (s *Streamer) WithReconnectDelay(d time.Duration) *Streamer {
	s.reconnectDelay = d
	return s
}

// Run blocks until ctx is cancelled, maintaining the connection.
func (s *Streamer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		subs := s.symbols(ctx)
		if err := s.connectAndListen(ctx, subs); err != nil && ctx.Err() == nil {
			s.logger.Error("stream connection lost", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Streamer) connectAndListen(ctx context.Context, symbols []string) error {
	s.logger.Info("connecting to trade stream", "symbols", len(symbols))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read loop when the supervisor shuts down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for _, symbol := range symbols {
		if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Symbol: symbol}); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}
	s.logger.Info("subscribed", "symbols", len(symbols))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var frame tradeFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		if frame.Type != "trade" {
			// Pings, subscribe acks and error frames carry no trades.
			continue
		}

		for _, trade := range frame.Data {
			if trade.Symbol == "" || trade.Price.IsZero() {
				continue
			}
			s.cache.PutLive(ctx, trade.Symbol, trade.Price)
		}
	}
}
