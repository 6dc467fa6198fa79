package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ConfigError is returned when required configuration is missing or invalid.
// It is fatal at startup.
type ConfigError struct {
	Errors []ValidationError
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", ve.Field, ve.Message))
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Err returns a *ConfigError when the result is invalid, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ConfigError{Errors: r.Errors}
}

// Validate checks the config for missing identifiers and invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateAddress(c.Address)...)
	errors = append(errors, validateSinks(c)...)
	errors = append(errors, validateWatch(&c.Watch)...)
	errors = append(errors, validatePolymarket(&c.Polymarket, c.Watch.WSHintsEnabled)...)
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateAddress(addr string) []ValidationError {
	if addr == "" {
		return []ValidationError{{Field: "address", Message: "is required (WATCH_ADDRESS)"}}
	}
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return []ValidationError{{Field: "address", Message: "must be a 0x-prefixed 20-byte hex address"}}
	}
	for _, r := range addr[2:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return []ValidationError{{Field: "address", Message: "must be hex"}}
		}
	}
	return nil
}

func validateSinks(c *Config) []ValidationError {
	var errors []ValidationError

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		errors = append(errors, ValidationError{
			Field:   "telegram.chat_id",
			Message: "is required when TELEGRAM_BOT_KEY is set",
		})
	}
	if c.Discord.BotToken != "" && c.Discord.ChannelID == "" {
		errors = append(errors, ValidationError{
			Field:   "discord.channel_id",
			Message: "is required when DISCORD_BOT_TOKEN is set",
		})
	}
	if !c.Telegram.Enabled() && !c.Discord.Enabled() && len(errors) == 0 {
		errors = append(errors, ValidationError{
			Field:   "notifier",
			Message: "at least one of telegram or discord must be configured",
		})
	}

	return errors
}

func validateWatch(w *WatchConfig) []ValidationError {
	var errors []ValidationError

	if w.PollInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "watch.poll_interval",
			Message: "must be at least 1 second",
		})
	}

	if w.SizeThreshold.IsNegative() {
		errors = append(errors, ValidationError{
			Field:   "watch.size_threshold",
			Message: "must be non-negative",
		})
	}

	if w.FetchLimit < 1 || w.FetchLimit > 10000 {
		errors = append(errors, ValidationError{
			Field:   "watch.fetch_limit",
			Message: "must be between 1 and 10000",
		})
	}

	if w.Scope != TradeScopeAll && w.Scope != TradeScopeTaker {
		errors = append(errors, ValidationError{
			Field:   "watch.scope",
			Message: "must be all or taker",
		})
	}

	if w.Lookback < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.lookback",
			Message: "must be non-negative",
		})
	}

	if w.DedupSafetyMargin < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.dedup_safety_margin",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validatePolymarket(p *PolymarketConfig, wsEnabled bool) []ValidationError {
	var errors []ValidationError

	if !strings.HasPrefix(p.DataAPIURL, "http://") && !strings.HasPrefix(p.DataAPIURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "polymarket.data_api_url",
			Message: "must be an http(s) URL",
		})
	}

	if wsEnabled && !strings.HasPrefix(p.WSURL, "ws://") && !strings.HasPrefix(p.WSURL, "wss://") {
		errors = append(errors, ValidationError{
			Field:   "polymarket.ws_url",
			Message: "must be a ws(s) URL",
		})
	}

	return errors
}

func validateHealthServer(hs *HealthServerConfig) []ValidationError {
	var errors []ValidationError

	if hs.Enabled && (hs.Port < 1 || hs.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "health_server.port",
			Message: "must be between 1 and 65535",
		})
	}

	return errors
}
