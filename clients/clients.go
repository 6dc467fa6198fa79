package clients

import (
	"polywatch/clients/discord"
	"polywatch/clients/notifier"
	"polywatch/clients/polymarketapi"
	"polywatch/clients/polymarketevents"
	"polywatch/clients/telegram"
	"polywatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Discord          *discord.DiscordClient
	Telegram         *telegram.TelegramClient
	Notifier         *notifier.MultiNotifier // Combined notifier for all enabled sinks
	Polymarket       *polymarketapi.PolymarketApiClient
	PolymarketEvents *polymarketevents.PolymarketEventsClient
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Clients{
		Logger:     logger,
		Polymarket: polymarketapi.NewPolymarketApiClient(logger, cfg),
	}

	// Only sinks with both credentials and a destination are built, so the
	// multi notifier never holds a typed nil.
	var sinks []notifier.Notifier
	if cfg.Telegram.Enabled() {
		c.Telegram = telegram.NewTelegramClient(logger, cfg)
		sinks = append(sinks, c.Telegram)
	}
	if cfg.Discord.Enabled() {
		c.Discord = discord.NewDiscordClient(logger, cfg)
		sinks = append(sinks, c.Discord)
	}
	c.Notifier = notifier.NewMultiNotifier(sinks...)

	if cfg.Watch.WSHintsEnabled {
		c.PolymarketEvents = polymarketevents.NewPolymarketEventsClient(logger, cfg.Polymarket.WSURL)
	}

	return c
}

// Close releases every sink.
func (c *Clients) Close() error {
	return c.Notifier.Close()
}
