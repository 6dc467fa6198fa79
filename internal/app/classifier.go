package app

import (
	"polywatch/clients/notifier"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of classifying one trade record.
type Decision string

const (
	DecisionAlert          Decision = "alert"
	DecisionUnknownSide    Decision = "unknown_side"
	DecisionOtherWallet    Decision = "other_wallet"
	DecisionBelowThreshold Decision = "below_threshold"
)

// DefaultSizeThreshold is the minimum share count that alerts.
var DefaultSizeThreshold = decimal.NewFromInt(1000)

// Classify decides whether rec is a qualifying trade of subject and builds
// its alert. The threshold is inclusive. A record without any participant
// fields is trusted to belong to subject, since the feed was filtered by
// user already.
func Classify(rec TradeRecord, threshold decimal.Decimal, subject string) (notifier.TradeAlert, Decision) {
	if rec.Side != SideBuy && rec.Side != SideSell {
		return notifier.TradeAlert{}, DecisionUnknownSide
	}

	if len(rec.Participants) > 0 && !containsAddress(rec.Participants, subject) {
		return notifier.TradeAlert{}, DecisionOtherWallet
	}

	if rec.Size.LessThan(threshold) {
		return notifier.TradeAlert{}, DecisionBelowThreshold
	}

	kind := notifier.AlertKindLargeSell
	if rec.Side == SideBuy {
		kind = notifier.AlertKindLargeBuy
	}

	return notifier.TradeAlert{
		Kind:            kind,
		Shares:          rec.Size,
		Price:           rec.Price,
		Market:          marketLabel(rec),
		Outcome:         rec.Outcome,
		Timestamp:       rec.Time(),
		TraderAddress:   subject,
		TransactionHash: rec.TransactionHash,
		MarketSlug:      rec.MarketSlug,
	}, DecisionAlert
}

// marketLabel prefers the display title, then slug, then condition ID.
func marketLabel(rec TradeRecord) string {
	return nz(rec.MarketTitle, nz(rec.MarketSlug, nz(rec.ConditionID, "unknown")))
}

func containsAddress(addrs []string, subject string) bool {
	for _, a := range addrs {
		if a == subject {
			return true
		}
	}
	return false
}
