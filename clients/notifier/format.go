package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// PriceAbsent is shown when the upstream price was not numeric.
const PriceAbsent = "—"

// Style is the rich-text dialect of a sink.
type Style struct {
	Bold   func(string) string
	Escape func(string) string
}

// HTMLStyle matches Telegram's HTML parse mode.
var HTMLStyle = Style{
	Bold:   func(s string) string { return "<b>" + s + "</b>" },
	Escape: html.EscapeString,
}

// MarkdownStyle matches Discord message markdown.
var MarkdownStyle = Style{
	Bold: func(s string) string { return "**" + s + "**" },
	Escape: strings.NewReplacer(
		"\\", "\\\\",
		"*", "\\*",
		"_", "\\_",
		"~", "\\~",
		"`", "\\`",
		"|", "\\|",
	).Replace,
}

// Title returns the headline for an alert kind.
func Title(kind AlertKind) string {
	switch kind {
	case AlertKindLargeSell:
		return "🔴 Large sell"
	case AlertKindLargeBuy:
		return "🟢 Large buy"
	default:
		return "🚨 Trade alert"
	}
}

// FormatPrice renders the price or the absence marker.
func FormatPrice(alert TradeAlert) string {
	if !alert.Price.Valid {
		return PriceAbsent
	}
	return alert.Price.Decimal.String() + " USDC"
}

// Render builds the message text for one alert.
func Render(alert TradeAlert, style Style) string {
	var sb strings.Builder

	sb.WriteString(style.Bold(style.Escape(Title(alert.Kind))))
	sb.WriteString("\n\n")

	writeLine(&sb, style, "Shares", alert.Shares.String())
	writeLine(&sb, style, "Price", FormatPrice(alert))
	writeLine(&sb, style, "Market", alert.Market)
	if alert.Outcome != "" {
		writeLine(&sb, style, "Outcome", alert.Outcome)
	}
	if alert.TraderAddress != "" {
		writeLine(&sb, style, "Trader", ShortAddress(alert.TraderAddress))
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	writeLine(&sb, style, "Time", ts.UTC().Format("2006-01-02 15:04:05 MST"))

	if alert.MarketSlug != "" || alert.TransactionHash != "" {
		sb.WriteString("\n")
	}
	if alert.MarketSlug != "" {
		sb.WriteString(style.Escape(fmt.Sprintf("https://polymarket.com/market/%s", alert.MarketSlug)))
		sb.WriteString("\n")
	}
	if alert.TransactionHash != "" {
		sb.WriteString(style.Escape(fmt.Sprintf("https://polygonscan.com/tx/%s", alert.TransactionHash)))
	}

	return sb.String()
}

func writeLine(sb *strings.Builder, style Style, label, value string) {
	sb.WriteString(style.Bold(style.Escape(label + ":")))
	sb.WriteString(" ")
	sb.WriteString(style.Escape(value))
	sb.WriteString("\n")
}

// ShortAddress truncates a wallet address for display.
func ShortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
