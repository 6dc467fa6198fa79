package clients

import (
	"polywatch/config"
	"testing"

	"go.uber.org/zap"
)

func TestNewClients(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram = config.TelegramConfig{BotToken: "tg-token", ChatID: "chat"}
	cfg.Discord = config.DiscordConfig{BotToken: "dc-token", ChannelID: "123"}
	cfg.Watch.WSHintsEnabled = true

	logger := zap.NewNop()
	clients := NewClients(logger, cfg)

	if clients.Logger != logger {
		t.Error("unexpected logger")
	}
	if clients.Telegram == nil {
		t.Error("expected Telegram client to be set")
	}
	if clients.Discord == nil {
		t.Error("expected Discord client to be set")
	}
	if clients.Notifier.Count() != 2 {
		t.Errorf("expected 2 sinks, got %d", clients.Notifier.Count())
	}
	if clients.Polymarket == nil {
		t.Error("expected Polymarket client to be set")
	}
	if clients.PolymarketEvents == nil {
		t.Error("expected PolymarketEvents client when hints are enabled")
	}
}

func TestNewClients_OnlyEnabledSinks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram = config.TelegramConfig{BotToken: "tg-token", ChatID: "chat"}
	cfg.Discord = config.DiscordConfig{ChannelID: "123"} // no token

	clients := NewClients(zap.NewNop(), cfg)

	if clients.Discord != nil {
		t.Error("expected Discord client to be skipped without token")
	}
	if clients.Notifier.Count() != 1 {
		t.Errorf("expected 1 sink, got %d", clients.Notifier.Count())
	}
	if clients.PolymarketEvents != nil {
		t.Error("expected no PolymarketEvents client when hints are disabled")
	}
}

func TestNewClients_NilLogger(t *testing.T) {
	clients := NewClients(nil, config.Defaults())

	if clients.Logger == nil {
		t.Error("expected nop logger")
	}
	if clients.Polymarket == nil {
		t.Error("expected Polymarket client to be set")
	}
	if err := clients.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}
