package app

import (
	"context"
	"encoding/json"
	"polywatch/clients/polymarketapi"
	"polywatch/config"

	"go.uber.org/zap"
)

// TradeFeed returns a bounded, unordered batch of the subject's recent
// trades. Failures are *polymarketapi.TransportError or
// *polymarketapi.DecodeError.
type TradeFeed interface {
	FetchTrades(ctx context.Context, subject string, limit int) ([]TradeRecord, error)
}

// TradeSource is the raw Data API call behind DataAPIFeed.
type TradeSource interface {
	GetUserTrades(ctx context.Context, params polymarketapi.TradeParams) ([]json.RawMessage, error)
}

// DataAPIFeed adapts the Data API /trades endpoint to TradeFeed.
type DataAPIFeed struct {
	logger    *zap.Logger
	source    TradeSource
	takerOnly bool
	metrics   *Metrics
}

func NewDataAPIFeed(logger *zap.Logger, source TradeSource, scope config.TradeScope, metrics *Metrics) *DataAPIFeed {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DataAPIFeed{
		logger:    logger,
		source:    source,
		takerOnly: scope == config.TradeScopeTaker,
		metrics:   metrics,
	}
}

// FetchTrades implements TradeFeed. Elements that are not objects are
// skipped and counted; they never fail the batch.
func (f *DataAPIFeed) FetchTrades(ctx context.Context, subject string, limit int) ([]TradeRecord, error) {
	raw, err := f.source.GetUserTrades(ctx, polymarketapi.TradeParams{
		User:      subject,
		Limit:     limit,
		TakerOnly: f.takerOnly,
	})
	if err != nil {
		return nil, err
	}

	records := make([]TradeRecord, 0, len(raw))
	skipped := 0
	for i, elem := range raw {
		rec, err := ParseTradeRecord(elem)
		if err != nil {
			skipped++
			f.logger.Debug("skipping malformed trade element",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		f.logger.Warn("trade batch contained malformed elements",
			zap.Int("skipped", skipped),
			zap.Int("batchSize", len(raw)),
		)
	}
	if f.metrics != nil {
		f.metrics.RecordsFetched.Add(float64(len(records)))
		f.metrics.RecordsSkipped.Add(float64(skipped))
	}

	return records, nil
}
