package discord

import (
	"context"
	"fmt"
	"polywatch/clients/notifier"
	"polywatch/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// channelSender is the part of *discordgo.Session the client uses.
type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   channelSender
	closer    func() error
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.ChannelID

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	logger.Info("discord bot initialized",
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		closer:    session.Close,
		channelID: channelID,
	}
}

// SendTradeAlert posts the alert as a markdown channel message.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendTradeAlert(ctx context.Context, alert notifier.TradeAlert) error {
	if dc.session == nil || dc.channelID == "" {
		return &notifier.DeliveryError{Sink: "discord", Err: fmt.Errorf("not configured")}
	}

	message := notifier.Render(alert, notifier.MarkdownStyle)

	_, err := dc.session.ChannelMessageSend(dc.channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		return &notifier.DeliveryError{Sink: "discord", Err: err}
	}

	dc.logger.Info("sent discord trade alert",
		zap.String("kind", string(alert.Kind)),
		zap.String("market", alert.Market),
	)
	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (dc *DiscordClient) Close() error {
	if dc.closer == nil {
		return nil
	}
	return dc.closer()
}
