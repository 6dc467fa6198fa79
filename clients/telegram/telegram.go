package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"polywatch/clients/notifier"
	"polywatch/config"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// TelegramClient sends alerts to Telegram.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger     *zap.Logger
	botToken   string
	chatID     string
	apiBaseURL string
	client     *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger:     logger,
			chatID:     cfg.Telegram.ChatID,
			apiBaseURL: defaultAPIBaseURL,
		}
	}

	logger.Info("telegram bot initialized",
		zap.String("chatID", cfg.Telegram.ChatID),
	)

	return &TelegramClient{
		logger:     logger,
		botToken:   token,
		chatID:     cfg.Telegram.ChatID,
		apiBaseURL: defaultAPIBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendTradeAlert sends a trade alert notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendTradeAlert(ctx context.Context, alert notifier.TradeAlert) error {
	if tc.botToken == "" || tc.chatID == "" {
		return &notifier.DeliveryError{Sink: "telegram", Err: fmt.Errorf("not configured")}
	}

	message := notifier.Render(alert, notifier.HTMLStyle)

	if err := tc.sendMessage(ctx, message); err != nil {
		return &notifier.DeliveryError{Sink: "telegram", Err: err}
	}

	tc.logger.Info("sent telegram trade alert",
		zap.String("kind", string(alert.Kind)),
		zap.String("market", alert.Market),
	)
	return nil
}

func (tc *TelegramClient) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tc.apiBaseURL, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":                  tc.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		// the URL embeds the token
		return fmt.Errorf("send request: %w", redact(err, tc.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}
