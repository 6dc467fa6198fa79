package polymarketevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PolymarketEventsClient keeps a subscription to the public CLOB market
// channel open and hands every event to a callback.
type PolymarketEventsClient struct {
	logger *zap.Logger

	marketWSURL          string
	dialer               *websocket.Dialer
	pingInterval         time.Duration
	customFeatureEnabled bool

	// reconnect delays
	reconnectInitial time.Duration
	reconnectMax     time.Duration

	writeMu sync.Mutex

	connected       atomic.Bool
	msgCount        uint64
	lastMsgUnixNano int64
}

func NewPolymarketEventsClient(logger *zap.Logger, wsURL string) *PolymarketEventsClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketEventsClient{
		logger:               logger,
		marketWSURL:          wsURL,
		dialer:               websocket.DefaultDialer,
		pingInterval:         10 * time.Second,
		customFeatureEnabled: true,
		reconnectInitial:     3 * time.Second,
		reconnectMax:         2 * time.Minute,
	}
}

type WSStats struct {
	Connected     bool
	MessageCount  uint64
	LastMessageAt time.Time
}

func (c *PolymarketEventsClient) Stats() WSStats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}

	return WSStats{
		Connected:     c.connected.Load(),
		MessageCount:  n,
		LastMessageAt: t,
	}
}

// Run keeps the market channel subscription alive until ctx is cancelled.
// After a dropped or failed connection it waits an exponentially growing
// delay, reset once a session has delivered at least one frame.
func (c *PolymarketEventsClient) Run(ctx context.Context, handle func(json.RawMessage)) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.reconnectInitial
	b.MaxInterval = c.reconnectMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		received, err := c.runSession(ctx, handle)
		if ctx.Err() != nil {
			c.logger.Info("polymarket ws stopped")
			return
		}
		if received > 0 {
			b.Reset()
		}

		delay := b.NextBackOff()
		c.logger.Warn("polymarket ws disconnected, reconnecting",
			zap.Error(err),
			zap.Uint64("framesReceived", received),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			c.logger.Info("polymarket ws stopped")
			return
		case <-time.After(delay):
		}
	}
}

// runSession dials, subscribes and reads until the connection fails.
func (c *PolymarketEventsClient) runSession(ctx context.Context, handle func(json.RawMessage)) (uint64, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.marketWSURL, nil)
	if err != nil {
		return 0, fmt.Errorf("dial market ws: %w", err)
	}
	defer conn.Close()

	c.logger.Info("polymarket ws dialed", zap.String("url", c.marketWSURL))

	// Empty assets_ids subscribes to every market.
	sub := map[string]any{
		"type":       "market",
		"assets_ids": []string{},
	}
	if c.customFeatureEnabled {
		sub["custom_feature_enabled"] = true
	}
	if err := c.writeJSON(conn, sub); err != nil {
		return 0, fmt.Errorf("send initial subscription: %w", err)
	}

	c.connected.Store(true)
	defer c.connected.Store(false)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go c.pingLoop(conn, done)

	var received uint64
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read: %w", err)
		}

		// Server may reply with plain "PONG".
		if string(b) == "PONG" || string(b) == "PING" {
			continue
		}

		received++
		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		c.emitFrame(b, handle)
	}
}

func (c *PolymarketEventsClient) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *PolymarketEventsClient) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			c.writeMu.Unlock()
		case <-done:
			return
		}
	}
}

// emitFrame forwards a single event or each element of a batch frame.
func (c *PolymarketEventsClient) emitFrame(b []byte, handle func(json.RawMessage)) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			c.logger.Warn("polymarket ws bad json array frame",
				zap.Error(err),
				zap.Int("bytes", len(b)),
			)
			return
		}
		for _, one := range arr {
			handle(one)
		}
		return
	}

	handle(json.RawMessage(append([]byte(nil), trimmed...)))
}
