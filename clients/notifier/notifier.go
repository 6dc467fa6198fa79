package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// AlertKind indicates the direction of a large trade.
type AlertKind string

const (
	AlertKindLargeBuy  AlertKind = "LARGE_BUY"
	AlertKindLargeSell AlertKind = "LARGE_SELL"
)

// TradeAlert contains all the data needed for a trade alert notification.
// It is built once per qualifying trade and not retained after delivery.
type TradeAlert struct {
	Kind      AlertKind
	Shares    decimal.Decimal
	Price     decimal.NullDecimal // invalid when upstream price was not numeric
	Market    string
	Outcome   string
	Timestamp time.Time

	// Context for links, may be empty
	TraderAddress   string
	TransactionHash string
	MarketSlug      string
}

// Notifier is the interface for sending trade alerts to various channels.
type Notifier interface {
	// SendTradeAlert delivers one alert. It does not retry; a failure is
	// reported as a *DeliveryError.
	SendTradeAlert(ctx context.Context, alert TradeAlert) error

	// Close cleans up any resources.
	Close() error
}

// DeliveryError reports that a sink could not deliver an alert.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendTradeAlert sends the alert to all registered notifiers. A failing sink
// does not stop the others; all failures are combined.
func (m *MultiNotifier) SendTradeAlert(ctx context.Context, alert TradeAlert) error {
	var err error
	for _, n := range m.notifiers {
		err = multierr.Append(err, n.SendTradeAlert(ctx, alert))
	}
	return err
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var err error
	for _, n := range m.notifiers {
		err = multierr.Append(err, n.Close())
	}
	return err
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
