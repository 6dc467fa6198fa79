package app

import (
	"context"
	"polywatch/clients/notifier"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSubject = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

// fakeFeed returns queued batches in order, then repeats the last one.
type fakeFeed struct {
	mu      sync.Mutex
	batches [][]TradeRecord
	errs    []error
	calls   int
	onFetch func()
}

func (f *fakeFeed) FetchTrades(ctx context.Context, subject string, limit int) ([]TradeRecord, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	onFetch := f.onFetch
	f.mu.Unlock()

	if onFetch != nil {
		onFetch()
	}

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	// Copy so the loop's sort does not reorder the fixture.
	return append([]TradeRecord(nil), f.batches[i]...), nil
}

func (f *fakeFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeNotifier records every alert it is handed.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []notifier.TradeAlert
	err    error
	onSend func(notifier.TradeAlert)
	closed bool
}

func (n *fakeNotifier) SendTradeAlert(ctx context.Context, alert notifier.TradeAlert) error {
	n.mu.Lock()
	n.alerts = append(n.alerts, alert)
	onSend := n.onSend
	err := n.err
	n.mu.Unlock()

	if onSend != nil {
		onSend(alert)
	}
	return err
}

func (n *fakeNotifier) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

func (n *fakeNotifier) Alerts() []notifier.TradeAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.TradeAlert(nil), n.alerts...)
}

func newTestLoop(feed TradeFeed, notif notifier.Notifier) *PollLoop {
	l := NewPollLoop(zap.NewNop(), feed, notif, NewMetrics(prometheus.NewRegistry()), PollLoopConfig{
		Subject:           testSubject,
		PollInterval:      time.Hour,
		FetchLimit:        100,
		Threshold:         DefaultSizeThreshold,
		DedupSafetyMargin: 10 * time.Minute,
	})
	l.watermark = &Watermark{}
	return l
}

func trade(ts int64, side Side, size string) TradeRecord {
	return TradeRecord{
		Timestamp:   ts,
		Side:        side,
		Size:        decimal.RequireFromString(size),
		Price:       decimal.NewNullDecimal(decimal.RequireFromString("0.5")),
		MarketTitle: "Test market",
	}
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
