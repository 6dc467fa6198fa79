package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// TradeScope selects which fills of the subject the Data API returns.
type TradeScope string

const (
	TradeScopeAll   TradeScope = "all"   // maker and taker fills
	TradeScopeTaker TradeScope = "taker" // taker fills only
)

// Config holds all application configuration.
// It is read once at startup and never mutated afterwards.
type Config struct {
	// Subject wallet, lowercased
	Address string `yaml:"address"`

	// Telegram
	Telegram TelegramConfig `yaml:"telegram"`

	// Discord
	Discord DiscordConfig `yaml:"discord"`

	// Trade watching
	Watch WatchConfig `yaml:"watch"`

	// Polymarket API
	Polymarket PolymarketConfig `yaml:"polymarket"`

	// Health server
	HealthServer HealthServerConfig `yaml:"health_server"`

	LogLevel string `yaml:"log_level"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken string `yaml:"-"` // env var only
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether both the token and the chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken  string `yaml:"-"` // env var only
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both the token and the channel are set.
func (d DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.ChannelID != ""
}

// WatchConfig holds poll loop configuration.
type WatchConfig struct {
	PollInterval      time.Duration   `yaml:"poll_interval"`
	SizeThreshold     decimal.Decimal `yaml:"size_threshold"`      // Minimum shares to alert on (inclusive), 0 alerts on every fill
	FetchLimit        int             `yaml:"fetch_limit"`         // Trades requested per poll
	Scope             TradeScope      `yaml:"scope"`               // all or taker
	Lookback          time.Duration   `yaml:"lookback"`            // Cold start re-scan window, 0 = start at now
	DedupSafetyMargin time.Duration   `yaml:"dedup_safety_margin"` // Dedup entries older than watermark minus this are pruned
	WSHintsEnabled    bool            `yaml:"ws_hints_enabled"`    // Trigger early polls from the CLOB market channel
}

// PolymarketConfig holds Polymarket API configuration.
type PolymarketConfig struct {
	DataAPIURL string `yaml:"data_api_url"`
	WSURL      string `yaml:"ws_url"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		Watch: WatchConfig{
			PollInterval:      30 * time.Second,
			SizeThreshold:     decimal.NewFromInt(1000),
			FetchLimit:        100,
			Scope:             TradeScopeAll,
			Lookback:          1 * time.Hour,
			DedupSafetyMargin: 10 * time.Minute,
		},
		Polymarket: PolymarketConfig{
			DataAPIURL: "https://data-api.polymarket.com",
			WSURL:      "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is read first, then the optional
// YAML file named by POLYWATCH_CONFIG_FILE; real env vars win over both.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	base := Defaults()
	if path := envString("POLYWATCH_CONFIG_FILE", ""); path != "" {
		fileCfg, err := LoadFile(path, base)
		if err != nil {
			return nil, err
		}
		base = fileCfg
	}

	return &Config{
		Address: normalizeAddress(envString("WATCH_ADDRESS", envString("ADDRESS", base.Address))),

		Telegram: TelegramConfig{
			BotToken: envString("TELEGRAM_BOT_KEY", envString("BOT_TOKEN", "")),
			ChatID:   envString("TELEGRAM_CHAT_ID", envString("CHAT_ID", base.Telegram.ChatID)),
		},

		Discord: DiscordConfig{
			BotToken:  envString("DISCORD_BOT_TOKEN", ""),
			ChannelID: envString("DISCORD_CHANNEL_ID", base.Discord.ChannelID),
		},

		Watch: WatchConfig{
			PollInterval:      envDuration("TRADE_POLL_INTERVAL", base.Watch.PollInterval),
			SizeThreshold:     envDecimal("TRADE_SIZE_THRESHOLD", base.Watch.SizeThreshold),
			FetchLimit:        envInt("TRADE_FETCH_LIMIT", base.Watch.FetchLimit),
			Scope:             TradeScope(strings.ToLower(envString("TRADE_SCOPE", string(base.Watch.Scope)))),
			Lookback:          envDuration("TRADE_LOOKBACK", base.Watch.Lookback),
			DedupSafetyMargin: envDuration("DEDUP_SAFETY_MARGIN", base.Watch.DedupSafetyMargin),
			WSHintsEnabled:    envBoolDefault("WS_HINTS_ENABLED", base.Watch.WSHintsEnabled),
		},

		Polymarket: PolymarketConfig{
			DataAPIURL: envString("POLYMARKET_DATA_API_URL", base.Polymarket.DataAPIURL),
			WSURL:      envString("POLYMARKET_WS_URL", base.Polymarket.WSURL),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", base.HealthServer.Enabled),
			Port:    envInt("HEALTH_SERVER_PORT", base.HealthServer.Port),
		},

		LogLevel: strings.ToLower(envString("LOG_LEVEL", base.LogLevel)),
	}, nil
}

// LoadFile decodes a YAML config file on top of base.
func LoadFile(path string, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.Address = normalizeAddress(cfg.Address)
	return &cfg, nil
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// envDecimal parses an exact decimal, keeping every digit.
func envDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
