package polymarketapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RawTrade is a single trade object with its original field names.
// Numbers are kept as json.Number so no precision is lost before the
// caller converts them.
type RawTrade map[string]any

// DecodeRawTrade decodes one batch element. Elements that are not JSON
// objects are rejected.
func DecodeRawTrade(raw json.RawMessage) (RawTrade, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode trade: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("trade is %T, not an object", v)
	}
	return RawTrade(obj), nil
}

// Payload returns the nested "payload" object when the trade is wrapped in
// an event envelope, or the trade itself otherwise.
func (r RawTrade) Payload() RawTrade {
	if inner, ok := r["payload"].(map[string]any); ok {
		return RawTrade(inner)
	}
	return r
}

// String returns the first non-empty value among keys, formatted as text.
func (r RawTrade) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case bool:
			return fmt.Sprintf("%t", v)
		}
	}
	return ""
}

// Number returns the textual form of the first numeric value among keys.
// Numeric strings count; anything else is skipped.
func (r RawTrade) Number(keys ...string) (string, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case json.Number:
			return v.String(), true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if _, err := json.Number(s).Float64(); err == nil {
				return s, true
			}
		}
	}
	return "", false
}
