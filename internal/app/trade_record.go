package app

import (
	"encoding/json"
	"fmt"
	"polywatch/clients/polymarketapi"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a fill from the subject's point of view.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideUnknown Side = "UNKNOWN"
)

// ParseSide maps upstream side strings case-insensitively.
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	default:
		return SideUnknown
	}
}

// Field aliases seen across Data API schema variants.
var (
	timestampKeys   = []string{"timestamp", "createdAt", "created_at", "match_time"}
	sizeKeys        = []string{"size", "amount", "quantity", "shares"}
	priceKeys       = []string{"price", "avg_price", "avgPrice", "last_price"}
	sideKeys        = []string{"side", "order_side"}
	participantKeys = []string{"proxyWallet", "maker", "maker_address", "taker", "taker_address"}
	conditionKeys   = []string{"conditionId", "condition_id", "market"}
	txHashKeys      = []string{"transactionHash", "transaction_hash"}
)

// secondsCutoff separates second-scale from millisecond-scale epochs.
var secondsCutoff = decimal.New(1, 12)

// TradeRecord is one normalised fill of the subject.
type TradeRecord struct {
	Timestamp int64 // unix millis
	Side      Side
	Size      decimal.Decimal
	Price     decimal.NullDecimal

	MarketTitle string
	MarketSlug  string
	ConditionID string
	Outcome     string

	// Lowercased wallet addresses named on the record, if any.
	Participants []string

	TransactionHash string
}

// Key is the composite identity timestamp|side|size|price. The upstream
// feed has no trade ID that is stable across schema variants.
func (t TradeRecord) Key() string {
	price := "-"
	if t.Price.Valid {
		price = t.Price.Decimal.String()
	}
	return fmt.Sprintf("%d|%s|%s|%s", t.Timestamp, t.Side, t.Size.String(), price)
}

// Time returns the trade time in UTC.
func (t TradeRecord) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}

// NormalizeTimestamp converts a second-scale epoch to milliseconds and
// leaves millisecond values alone.
func NormalizeTimestamp(v int64) int64 {
	return normalizeTimestamp(decimal.NewFromInt(v))
}

func normalizeTimestamp(d decimal.Decimal) int64 {
	if d.LessThan(secondsCutoff) {
		d = d.Shift(3)
	}
	return d.IntPart()
}

// ParseTradeRecord decodes one batch element. Only a non-object element is
// an error; missing or malformed fields degrade to zero, absent or unknown.
func ParseTradeRecord(raw json.RawMessage) (TradeRecord, error) {
	rt, err := polymarketapi.DecodeRawTrade(raw)
	if err != nil {
		return TradeRecord{}, err
	}
	return recordFromRaw(rt.Payload()), nil
}

func recordFromRaw(r polymarketapi.RawTrade) TradeRecord {
	rec := TradeRecord{
		Timestamp:       parseTimestamp(r),
		Side:            ParseSide(r.String(sideKeys...)),
		Size:            decimal.Zero,
		MarketTitle:     r.String("title"),
		MarketSlug:      r.String("slug"),
		ConditionID:     r.String(conditionKeys...),
		Outcome:         r.String("outcome"),
		TransactionHash: r.String(txHashKeys...),
	}

	if s, ok := r.Number(sizeKeys...); ok {
		if d, err := decimal.NewFromString(s); err == nil && !d.IsNegative() {
			rec.Size = d
		}
	}

	if s, ok := r.Number(priceKeys...); ok {
		if d, err := decimal.NewFromString(s); err == nil {
			rec.Price = decimal.NewNullDecimal(d)
		}
	}

	seen := make(map[string]struct{}, len(participantKeys))
	for _, k := range participantKeys {
		addr := strings.ToLower(r.String(k))
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		rec.Participants = append(rec.Participants, addr)
	}

	return rec
}

// parseTimestamp accepts epoch numbers, numeric strings and RFC 3339 text.
// Anything else yields 0, which the watermark always covers.
func parseTimestamp(r polymarketapi.RawTrade) int64 {
	if s, ok := r.Number(timestampKeys...); ok {
		if d, err := decimal.NewFromString(s); err == nil {
			return normalizeTimestamp(d)
		}
	}
	if s := r.String(timestampKeys...); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
