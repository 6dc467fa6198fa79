package app

import (
	"context"
	"net/http"
	clts "polywatch/clients"
	"polywatch/config"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

type Runner struct {
	clients      *clts.Clients
	cfg          *config.Config
	registry     *prometheus.Registry
	metrics      *Metrics
	loop         *PollLoop
	healthServer *http.Server
	startTime    time.Time
}

// ServiceStats holds service statistics served on /stats.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	Subject   string `json:"subject"`
	Threshold string `json:"threshold"`

	// Poll loop snapshot
	Loop LoopStatus `json:"loop"`

	// Push hint stream
	WebSocket struct {
		Enabled        bool   `json:"enabled"`
		Connected      bool   `json:"connected"`
		MessageCount   uint64 `json:"message_count"`
		LastMessageAt  string `json:"last_message_at,omitempty"`
		LastMessageAgo string `json:"last_message_ago,omitempty"`
	} `json:"websocket"`

	// Notification status
	Notifications struct {
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"` // bytes currently allocated on heap
		NumGC      uint32 `json:"num_gc"`     // number of completed GC cycles
		GoVersion  string `json:"go_version"`
	} `json:"runtime"`
}

// NewRunner wires the feed, the poll loop and the metrics. Nothing runs
// until Run is called.
func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	logger := clients.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)

	feed := NewDataAPIFeed(logger, clients.Polymarket, cfg.Watch.Scope, metrics)

	loop := NewPollLoop(logger, feed, clients.Notifier, metrics, PollLoopConfig{
		Subject:           cfg.Address,
		PollInterval:      cfg.Watch.PollInterval,
		FetchLimit:        cfg.Watch.FetchLimit,
		Threshold:         cfg.Watch.SizeThreshold,
		Lookback:          cfg.Watch.Lookback,
		DedupSafetyMargin: cfg.Watch.DedupSafetyMargin,
	})

	return &Runner{
		clients:   clients,
		cfg:       cfg,
		registry:  registry,
		metrics:   metrics,
		loop:      loop,
		startTime: time.Now(),
	}
}

// Run blocks until ctx is cancelled. The in-flight cycle, if any, is
// abandoned without advancing the watermark.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger

	logger.Info("starting trade watcher",
		zap.String("subject", shortID(r.cfg.Address)),
		zap.Duration("pollInterval", r.cfg.Watch.PollInterval),
		zap.Stringer("sizeThreshold", r.cfg.Watch.SizeThreshold),
		zap.String("scope", string(r.cfg.Watch.Scope)),
		zap.Duration("lookback", r.cfg.Watch.Lookback),
		zap.Int("sinks", r.clients.Notifier.Count()),
	)

	// Start push hint stream if configured
	if r.clients.PolymarketEvents != nil {
		go r.clients.PolymarketEvents.Run(ctx, r.loop.HandlePushEvent)
		logger.Info("push hint stream started", zap.String("url", r.cfg.Polymarket.WSURL))
	}

	// Start health check server if enabled
	if r.cfg.HealthServer.Enabled {
		r.startHealthServer(r.cfg.HealthServer.Port)
		logger.Info("health server started", zap.Int("port", r.cfg.HealthServer.Port))
	}

	r.loop.Run(ctx)

	logger.Info("runner shutting down")

	// Shutdown health server
	if r.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.healthServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err := r.clients.Close(); err != nil {
		logger.Warn("failed to close notifiers", zap.Error(err))
	}

	return nil
}

// GetStats returns service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	stats.Subject = r.cfg.Address
	stats.Threshold = r.cfg.Watch.SizeThreshold.String()
	stats.Loop = r.loop.Status()

	// WebSocket stats
	stats.WebSocket.Enabled = r.clients.PolymarketEvents != nil
	if r.clients.PolymarketEvents != nil {
		wsStats := r.clients.PolymarketEvents.Stats()
		stats.WebSocket.Connected = wsStats.Connected
		stats.WebSocket.MessageCount = wsStats.MessageCount
		if !wsStats.LastMessageAt.IsZero() {
			stats.WebSocket.LastMessageAt = wsStats.LastMessageAt.UTC().Format(time.RFC3339)
			stats.WebSocket.LastMessageAgo = time.Since(wsStats.LastMessageAt).Round(time.Second).String()
		}
	}

	// Notification status
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil
	if stats.Notifications.DiscordEnabled {
		stats.Notifications.DiscordChannelID = r.cfg.Discord.ChannelID
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil
	if stats.Notifications.TelegramEnabled {
		stats.Notifications.TelegramChatID = r.cfg.Telegram.ChatID
	}

	// Runtime stats
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = m.HeapAlloc
	stats.Runtime.NumGC = m.NumGC
	stats.Runtime.GoVersion = runtime.Version()

	return stats
}
