package polymarketevents

import (
	"encoding/json"
	"polywatch/clients/polymarketapi"
	"strings"
)

// IsFill reports whether a market channel event describes an executed
// trade. The channel uses several envelopes for the same thing.
func IsFill(ev polymarketapi.RawTrade) bool {
	if ev.String("event_type") == "trade" {
		return true
	}
	if ev.String("event") == "fill" || ev.String("type") == "fill" {
		return true
	}
	if inner, ok := ev["payload"].(map[string]any); ok {
		return polymarketapi.RawTrade(inner).String("event") == "fill"
	}
	return false
}

// FillMentions reports whether raw is a fill with address on either side.
// address must already be lowercase. Malformed frames never match.
func FillMentions(raw json.RawMessage, address string) bool {
	if address == "" {
		return false
	}

	ev, err := polymarketapi.DecodeRawTrade(raw)
	if err != nil || !IsFill(ev) {
		return false
	}

	fill := ev.Payload()
	maker := strings.ToLower(fill.String("maker", "maker_address"))
	taker := strings.ToLower(fill.String("taker", "taker_address"))

	return maker == address || taker == address
}
