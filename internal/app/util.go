package app

import (
	"errors"
	"polywatch/clients/notifier"
	"polywatch/clients/polymarketapi"
	"strings"
)

// shortID truncates long IDs for readable logging.
func shortID(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// nz returns fallback if s is empty or whitespace-only.
func nz(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// errorKind names the error family for log fields.
func errorKind(err error) string {
	var transportErr *polymarketapi.TransportError
	var decodeErr *polymarketapi.DecodeError
	var deliveryErr *notifier.DeliveryError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &deliveryErr):
		return "delivery"
	default:
		return "other"
	}
}
