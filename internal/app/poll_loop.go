package app

import (
	"context"
	"encoding/json"
	"polywatch/clients/notifier"
	"polywatch/clients/polymarketevents"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoopState is the phase the poll loop is in.
type LoopState string

const (
	StateIdle        LoopState = "IDLE"
	StateFetching    LoopState = "FETCHING"
	StateReconciling LoopState = "RECONCILING"
	StateDispatching LoopState = "DISPATCHING"
)

// Records stamped further than this past the local clock are held back and
// do not move the watermark.
const maxFutureSkew = 5 * time.Minute

// Cycle outcomes.
const (
	CycleOK         = "ok"
	CycleFetchError = "fetch_error"
	CycleCancelled  = "cancelled"
)

// PollLoopConfig holds configuration for the poll loop.
type PollLoopConfig struct {
	Subject           string          // lowercased wallet address
	PollInterval      time.Duration   // Fixed delay between scheduled cycles
	FetchLimit        int             // Trades requested per cycle
	Threshold         decimal.Decimal // Minimum shares, inclusive
	Lookback          time.Duration   // Initial watermark offset from now
	DedupSafetyMargin time.Duration   // Dedup entries older than watermark minus this are pruned
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
	Outcome          string        `json:"outcome"`
	Error            string        `json:"error,omitempty"`
	Fetched          int           `json:"fetched"`
	Candidates       int           `json:"candidates"`
	Future           int           `json:"future"`
	Alerts           int           `json:"alerts"`
	DeliveryFailures int           `json:"delivery_failures"`
	Watermark        int64         `json:"watermark"`
	Pruned           int           `json:"pruned"`
}

// LoopStatus is a read-only snapshot for the health server.
type LoopStatus struct {
	State            LoopState    `json:"state"`
	Watermark        int64        `json:"watermark"`
	DedupSize        int          `json:"dedup_size"`
	Cycles           uint64       `json:"cycles"`
	FetchErrors      uint64       `json:"fetch_errors"`
	AlertsSent       uint64       `json:"alerts_sent"`
	DeliveryFailures uint64       `json:"delivery_failures"`
	HintsReceived    uint64       `json:"hints_received"`
	LastCycle        *CycleResult `json:"last_cycle,omitempty"`
}

// PollLoop owns the watermark and the dedup cache and runs one cycle at a
// time. Cycles are triggered by a fixed ticker and by push hints; a hint
// arriving while a cycle is pending or running is coalesced into it.
type PollLoop struct {
	logger   *zap.Logger
	feed     TradeFeed
	notifier notifier.Notifier
	metrics  *Metrics
	cfg      PollLoopConfig

	// Touched only from the goroutine running cycles.
	watermark *Watermark
	dedup     *DedupCache

	hints chan struct{}
	now   func() time.Time

	statusMu sync.RWMutex
	status   LoopStatus
}

func NewPollLoop(
	logger *zap.Logger,
	feed TradeFeed,
	notif notifier.Notifier,
	metrics *Metrics,
	cfg PollLoopConfig,
) *PollLoop {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &PollLoop{
		logger:   logger,
		feed:     feed,
		notifier: notif,
		metrics:  metrics,
		cfg:      cfg,
		dedup:    NewDedupCache(),
		hints:    make(chan struct{}, 1),
		now:      time.Now,
	}
	l.watermark = NewWatermark(l.now(), cfg.Lookback)
	l.status = LoopStatus{State: StateIdle, Watermark: l.watermark.Value()}
	if metrics != nil {
		metrics.Watermark.Set(float64(l.watermark.Value()))
	}
	return l
}

// Run polls immediately and then on every tick or hint until ctx is done.
// A tick that fires during a cycle is dropped by the ticker.
func (l *PollLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	l.logger.Info("poll loop started",
		zap.String("subject", l.cfg.Subject),
		zap.Duration("pollInterval", l.cfg.PollInterval),
		zap.String("threshold", l.cfg.Threshold.String()),
		zap.Int64("watermark", l.watermark.Value()),
	)

	l.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("poll loop shutting down",
				zap.Int64("watermark", l.watermark.Value()),
			)
			return
		case <-ticker.C:
			l.RunCycle(ctx)
		case <-l.hints:
			l.logger.Debug("running hinted poll")
			l.RunCycle(ctx)
		}
	}
}

// Trigger asks for an early cycle. It never blocks and reports false when
// a hint was already pending.
func (l *PollLoop) Trigger() bool {
	select {
	case l.hints <- struct{}{}:
		return true
	default:
		return false
	}
}

// HandlePushEvent triggers an early cycle when a market channel event is a
// fill of the subject. Alerts still come only from the poll.
func (l *PollLoop) HandlePushEvent(msg json.RawMessage) {
	if !polymarketevents.FillMentions(msg, l.cfg.Subject) {
		return
	}

	l.statusMu.Lock()
	l.status.HintsReceived++
	l.statusMu.Unlock()

	queued := l.Trigger()
	if l.metrics != nil {
		l.metrics.HintsTotal.Inc()
		if !queued {
			l.metrics.HintsCoalesced.Inc()
		}
	}
	l.logger.Debug("push hint for subject", zap.Bool("queued", queued))
}

// RunCycle runs fetch, reconcile, dispatch and advance once.
//
// A fetch failure leaves watermark and dedup cache untouched. Cancellation
// during dispatch abandons the cycle without advancing the watermark.
func (l *PollLoop) RunCycle(ctx context.Context) (res CycleResult) {
	res = CycleResult{
		ID:        uuid.NewString(),
		StartedAt: l.now(),
	}
	logger := l.logger.With(zap.String("cycleID", res.ID))

	defer func() {
		res.Duration = l.now().Sub(res.StartedAt)
		res.Watermark = l.watermark.Value()
		l.finish(res)
	}()

	l.setState(StateFetching)
	records, err := l.feed.FetchTrades(ctx, l.cfg.Subject, l.cfg.FetchLimit)
	if err != nil {
		res.Error = err.Error()
		if ctx.Err() != nil {
			res.Outcome = CycleCancelled
			logger.Info("poll cycle cancelled during fetch")
			return res
		}
		res.Outcome = CycleFetchError
		logger.Warn("failed to fetch trades",
			zap.String("kind", errorKind(err)),
			zap.Error(err),
		)
		return res
	}
	res.Fetched = len(records)

	l.setState(StateReconciling)
	candidates, maxSeen, future := l.reconcile(records, l.now().Add(maxFutureSkew).UnixMilli())
	res.Candidates = len(candidates)
	res.Future = future
	if future > 0 {
		if l.metrics != nil {
			l.metrics.RecordsFuture.Add(float64(future))
		}
		logger.Warn("holding back trades stamped in the future",
			zap.Int("count", future),
			zap.Duration("maxSkew", maxFutureSkew),
		)
	}

	l.setState(StateDispatching)
	for _, rec := range candidates {
		if ctx.Err() != nil {
			res.Outcome = CycleCancelled
			logger.Info("poll cycle abandoned, watermark not advanced",
				zap.Int("alertsSent", res.Alerts),
			)
			return res
		}

		alert, decision := Classify(rec, l.cfg.Threshold, l.cfg.Subject)
		if l.metrics != nil {
			l.metrics.Decisions.WithLabelValues(string(decision)).Inc()
		}

		if decision != DecisionAlert {
			if decision == DecisionUnknownSide {
				logger.Info("skipping trade with unknown side",
					zap.Int64("timestamp", rec.Timestamp),
					zap.String("size", rec.Size.String()),
				)
			}
			continue
		}

		// The key counts as attempted whether or not delivery works.
		err := l.notifier.SendTradeAlert(ctx, alert)
		l.dedup.Add(rec.Key(), rec.Timestamp)

		if err != nil {
			res.DeliveryFailures++
			if l.metrics != nil {
				l.metrics.DeliveryErrors.Inc()
			}
			logger.Warn("failed to deliver trade alert",
				zap.String("kind", string(alert.Kind)),
				zap.String("key", rec.Key()),
				zap.Error(err),
			)
			continue
		}

		res.Alerts++
		if l.metrics != nil {
			l.metrics.AlertsTotal.WithLabelValues(string(alert.Kind)).Inc()
		}
		logger.Info("trade alert sent",
			zap.String("kind", string(alert.Kind)),
			zap.String("shares", alert.Shares.String()),
			zap.String("market", alert.Market),
			zap.Int64("timestamp", rec.Timestamp),
		)
	}

	if l.watermark.Advance(maxSeen) {
		res.Pruned = l.dedup.Prune(l.watermark.Value() - l.cfg.DedupSafetyMargin.Milliseconds())
	}
	res.Outcome = CycleOK

	logger.Info("poll cycle complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("candidates", res.Candidates),
		zap.Int("alerts", res.Alerts),
		zap.Int("deliveryFailures", res.DeliveryFailures),
		zap.Int64("watermark", l.watermark.Value()),
		zap.Int("dedupSize", l.dedup.Len()),
	)
	return res
}

// reconcile sorts the batch and keeps records above the watermark whose
// key has not been dispatched. maxSeen covers every record in the batch
// except those stamped after horizon, which are neither dispatched nor
// allowed to move the watermark.
func (l *PollLoop) reconcile(records []TradeRecord, horizon int64) ([]TradeRecord, int64, int) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	var maxSeen int64
	var future int
	candidates := make([]TradeRecord, 0, len(records))
	inBatch := make(map[string]struct{}, len(records))

	for _, rec := range records {
		if rec.Timestamp > horizon {
			future++
			continue
		}
		if rec.Timestamp > maxSeen {
			maxSeen = rec.Timestamp
		}
		if l.watermark.Covers(rec.Timestamp) {
			continue
		}
		key := rec.Key()
		if l.dedup.Contains(key) {
			continue
		}
		if _, dup := inBatch[key]; dup {
			continue
		}
		inBatch[key] = struct{}{}
		candidates = append(candidates, rec)
	}

	return candidates, maxSeen, future
}

func (l *PollLoop) setState(s LoopState) {
	l.statusMu.Lock()
	l.status.State = s
	l.statusMu.Unlock()
}

func (l *PollLoop) finish(res CycleResult) {
	l.statusMu.Lock()
	l.status.State = StateIdle
	l.status.Watermark = l.watermark.Value()
	l.status.DedupSize = l.dedup.Len()
	l.status.Cycles++
	if res.Outcome == CycleFetchError {
		l.status.FetchErrors++
	}
	l.status.AlertsSent += uint64(res.Alerts)
	l.status.DeliveryFailures += uint64(res.DeliveryFailures)
	l.status.LastCycle = &res
	l.statusMu.Unlock()

	if l.metrics != nil {
		l.metrics.CyclesTotal.WithLabelValues(res.Outcome).Inc()
		l.metrics.CycleDuration.Observe(res.Duration.Seconds())
		l.metrics.Watermark.Set(float64(l.watermark.Value()))
		l.metrics.DedupSize.Set(float64(l.dedup.Len()))
	}
}

// State returns the current phase.
func (l *PollLoop) State() LoopState {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.status.State
}

// Status returns a snapshot of the loop counters.
func (l *PollLoop) Status() LoopStatus {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	s := l.status
	if s.LastCycle != nil {
		lc := *s.LastCycle
		s.LastCycle = &lc
	}
	return s
}
