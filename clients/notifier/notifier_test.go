package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// mockNotifier is a test helper that implements Notifier interface
type mockNotifier struct {
	alerts      []TradeAlert
	sendErr     error
	closeErr    error
	closeCalled bool
}

func (m *mockNotifier) SendTradeAlert(ctx context.Context, alert TradeAlert) error {
	m.alerts = append(m.alerts, alert)
	return m.sendErr
}

func (m *mockNotifier) Close() error {
	m.closeCalled = true
	return m.closeErr
}

func sampleAlert() TradeAlert {
	return TradeAlert{
		Kind:            AlertKindLargeBuy,
		Shares:          decimal.RequireFromString("1500.5"),
		Price:           decimal.NewNullDecimal(decimal.RequireFromString("0.42")),
		Market:          "Will it <rain> *tomorrow*?",
		Outcome:         "Yes",
		Timestamp:       time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		TraderAddress:   "0x1234567890abcdef1234567890abcdef12345678",
		TransactionHash: "0xdeadbeef",
		MarketSlug:      "will-it-rain",
	}
}

func TestNewMultiNotifier_FiltersNil(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, nil, mock2, nil)

	if mn.Count() != 2 {
		t.Errorf("expected 2 notifiers, got %d", mn.Count())
	}
}

func TestMultiNotifier_SendTradeAlert(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}
	mn := NewMultiNotifier(mock1, mock2)

	if err := mn.SendTradeAlert(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock1.alerts) != 1 || len(mock2.alerts) != 1 {
		t.Errorf("expected each notifier to receive 1 alert, got %d and %d", len(mock1.alerts), len(mock2.alerts))
	}
}

func TestMultiNotifier_SendTradeAlert_PartialFailure(t *testing.T) {
	failing := &mockNotifier{sendErr: &DeliveryError{Sink: "telegram", Err: errors.New("boom")}}
	healthy := &mockNotifier{}
	mn := NewMultiNotifier(failing, healthy)

	err := mn.SendTradeAlert(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("expected error")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Errorf("expected *DeliveryError in chain, got %T", err)
	}
	if len(healthy.alerts) != 1 {
		t.Error("expected healthy notifier to still receive the alert")
	}
}

func TestMultiNotifier_Close(t *testing.T) {
	mock1 := &mockNotifier{closeErr: errors.New("close failed")}
	mock2 := &mockNotifier{}
	mn := NewMultiNotifier(mock1, mock2)

	if err := mn.Close(); err == nil {
		t.Error("expected close error")
	}
	if !mock1.closeCalled || !mock2.closeCalled {
		t.Error("expected all notifiers to be closed")
	}
}

func TestMultiNotifier_Empty(t *testing.T) {
	mn := NewMultiNotifier()

	if err := mn.SendTradeAlert(context.Background(), sampleAlert()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mn.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDeliveryError(t *testing.T) {
	inner := errors.New("status 500")
	err := &DeliveryError{Sink: "discord", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected error to unwrap to inner")
	}
	if !strings.Contains(err.Error(), "discord") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestRender_HTML(t *testing.T) {
	msg := Render(sampleAlert(), HTMLStyle)

	expected := []string{
		"<b>🟢 Large buy</b>",
		"<b>Shares:</b> 1500.5",
		"<b>Price:</b> 0.42 USDC",
		"<b>Market:</b> Will it &lt;rain&gt; *tomorrow*?",
		"<b>Outcome:</b> Yes",
		"<b>Trader:</b> 0x1234…5678",
		"<b>Time:</b> 2024-03-01 12:30:00 UTC",
		"https://polymarket.com/market/will-it-rain",
		"https://polygonscan.com/tx/0xdeadbeef",
	}
	for _, want := range expected {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestRender_Markdown(t *testing.T) {
	alert := sampleAlert()
	alert.Kind = AlertKindLargeSell

	msg := Render(alert, MarkdownStyle)

	if !strings.HasPrefix(msg, "**🔴 Large sell**") {
		t.Errorf("unexpected title, got:\n%s", msg)
	}
	if !strings.Contains(msg, `**Market:** Will it <rain> \*tomorrow\*?`) {
		t.Errorf("expected escaped market, got:\n%s", msg)
	}
}

func TestRender_AbsentPriceAndOptionalFields(t *testing.T) {
	alert := TradeAlert{
		Kind:   AlertKindLargeBuy,
		Shares: decimal.NewFromInt(1000),
		Market: "unknown",
	}

	msg := Render(alert, HTMLStyle)

	if !strings.Contains(msg, "<b>Price:</b> —") {
		t.Errorf("expected absence marker, got:\n%s", msg)
	}
	if strings.Contains(msg, "Outcome:") {
		t.Error("expected no outcome line")
	}
	if strings.Contains(msg, "Trader:") {
		t.Error("expected no trader line")
	}
	if strings.Contains(msg, "polygonscan") {
		t.Error("expected no transaction link")
	}
	if strings.Contains(msg, "polymarket.com") {
		t.Error("expected no market link")
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		kind     AlertKind
		expected string
	}{
		{AlertKindLargeBuy, "🟢 Large buy"},
		{AlertKindLargeSell, "🔴 Large sell"},
		{AlertKind("OTHER"), "🚨 Trade alert"},
	}

	for _, tt := range tests {
		if got := Title(tt.kind); got != tt.expected {
			t.Errorf("Title(%s) = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress("0xabc"); got != "0xabc" {
		t.Errorf("unexpected short address: %s", got)
	}
	if got := ShortAddress("0x1234567890abcdef1234567890abcdef12345678"); got != "0x1234…5678" {
		t.Errorf("unexpected short address: %s", got)
	}
}
