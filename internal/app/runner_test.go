package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"polywatch/clients"
	"polywatch/clients/notifier"
	"polywatch/clients/polymarketapi"
	"polywatch/config"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testConfig(dataURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Address = testSubject
	cfg.Polymarket.DataAPIURL = dataURL
	cfg.Watch.PollInterval = time.Hour
	cfg.Watch.Lookback = 24 * time.Hour
	cfg.HealthServer.Enabled = false
	return cfg
}

func testClients(cfg *config.Config, sinks ...notifier.Notifier) *clients.Clients {
	return &clients.Clients{
		Logger:     zap.NewNop(),
		Notifier:   notifier.NewMultiNotifier(sinks...),
		Polymarket: polymarketapi.NewPolymarketApiClient(zap.NewNop(), cfg),
	}
}

func TestNewRunner(t *testing.T) {
	cfg := testConfig("http://example.com")
	clts := testClients(cfg)

	runner := NewRunner(clts, cfg)

	if runner.loop == nil {
		t.Fatal("expected poll loop")
	}
	if runner.clients != clts {
		t.Error("unexpected clients")
	}
	if runner.loop.cfg.Subject != testSubject {
		t.Errorf("unexpected subject: %s", runner.loop.cfg.Subject)
	}
	if got := runner.loop.cfg.Threshold.String(); got != "1000" {
		t.Errorf("unexpected threshold: %s", got)
	}
	if runner.loop.cfg.FetchLimit != cfg.Watch.FetchLimit {
		t.Errorf("unexpected fetch limit: %d", runner.loop.cfg.FetchLimit)
	}
}

func TestNewRunner_ThresholdFromConfig(t *testing.T) {
	tests := []struct {
		threshold string
		size      string
		alerts    int
	}{
		{"0", "5", 1},
		{"5", "5", 1},
		{"999.9999999999999999", "999.9999999999999998", 0},
		{"999.9999999999999999", "999.9999999999999999", 1},
	}

	for _, tt := range tests {
		t.Run(tt.threshold+" size "+tt.size, func(t *testing.T) {
			cfg := testConfig("http://example.com")
			cfg.Telegram = config.TelegramConfig{BotToken: "tok", ChatID: "chat"}
			cfg.Watch.SizeThreshold = decimal.RequireFromString(tt.threshold)
			if result := cfg.Validate(); !result.Valid {
				t.Fatalf("unexpected validation errors: %+v", result.Errors)
			}

			runner := NewRunner(testClients(cfg), cfg)
			if !runner.loop.cfg.Threshold.Equal(cfg.Watch.SizeThreshold) {
				t.Fatalf("effective threshold %s, want %s", runner.loop.cfg.Threshold, tt.threshold)
			}

			sink := &fakeNotifier{}
			runner.loop.notifier = sink
			runner.loop.feed = &fakeFeed{batches: [][]TradeRecord{{
				trade(runner.loop.watermark.Value()+1, SideBuy, tt.size),
			}}}

			res := runner.loop.RunCycle(context.Background())
			if res.Alerts != tt.alerts {
				t.Errorf("expected %d alerts, got %d", tt.alerts, res.Alerts)
			}
		})
	}
}

func TestRunner_RunAlertsFromDataAPI(t *testing.T) {
	ts := time.Now().Add(-time.Minute).Unix()

	var requests atomic.Int32
	var badRequest atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if r.URL.Path != "/trades" || q.Get("user") != testSubject || q.Get("takerOnly") != "false" {
			badRequest.Store(r.URL.String())
		}

		trades := []map[string]any{
			{"proxyWallet": testSubject, "side": "BUY", "size": 2500, "price": 0.3, "timestamp": ts, "title": "Big market"},
			{"proxyWallet": testSubject, "side": "SELL", "size": 10, "price": 0.7, "timestamp": ts - 5, "title": "Small market"},
		}
		json.NewEncoder(w).Encode(trades)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	sink := &fakeNotifier{}
	clts := testClients(cfg, sink)
	runner := NewRunner(clts, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return len(sink.Alerts()) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	if v := badRequest.Load(); v != nil {
		t.Errorf("unexpected request: %v", v)
	}
	alert := sink.Alerts()[0]
	if alert.Kind != notifier.AlertKindLargeBuy || alert.Market != "Big market" {
		t.Errorf("unexpected alert: %s %q", alert.Kind, alert.Market)
	}
	sink.mu.Lock()
	closed := sink.closed
	sink.mu.Unlock()
	if !closed {
		t.Error("notifiers should be closed on shutdown")
	}
	if requests.Load() < 1 {
		t.Error("expected at least one Data API request")
	}
}

func TestRunner_GetStats(t *testing.T) {
	cfg := testConfig("http://example.com")
	cfg.Telegram = config.TelegramConfig{BotToken: "tok", ChatID: "chat"}
	clts := testClients(cfg)
	runner := NewRunner(clts, cfg)

	stats := runner.GetStats()

	if stats.Subject != testSubject {
		t.Errorf("unexpected subject: %s", stats.Subject)
	}
	if stats.Threshold != "1000" {
		t.Errorf("unexpected threshold: %s", stats.Threshold)
	}
	if stats.Loop.State != StateIdle {
		t.Errorf("unexpected state: %s", stats.Loop.State)
	}
	if stats.WebSocket.Enabled {
		t.Error("websocket should be disabled")
	}
	// no telegram client was built
	if stats.Notifications.TelegramEnabled {
		t.Error("telegram should be reported disabled")
	}
	if stats.Build.GoVersion == "" {
		t.Error("expected build go version")
	}
	if !strings.HasPrefix(stats.Runtime.GoVersion, "go") {
		t.Errorf("unexpected runtime go version: %s", stats.Runtime.GoVersion)
	}
}
