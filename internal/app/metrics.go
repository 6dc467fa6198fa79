package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "polywatch"

// Metrics holds the Prometheus collectors of the poll loop.
type Metrics struct {
	CyclesTotal    *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	RecordsFetched prometheus.Counter
	RecordsSkipped prometheus.Counter
	RecordsFuture  prometheus.Counter
	Decisions      *prometheus.CounterVec
	AlertsTotal    *prometheus.CounterVec
	DeliveryErrors prometheus.Counter
	Watermark      prometheus.Gauge
	DedupSize      prometheus.Gauge
	HintsTotal     prometheus.Counter
	HintsCoalesced prometheus.Counter
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Poll cycles by result",
		}, []string{"result"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a poll cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "records_fetched_total",
			Help:      "Trade records returned by the Data API",
		}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "records_skipped_total",
			Help:      "Batch elements that were not trade objects",
		}),
		RecordsFuture: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "poll",
			Name:      "records_future_total",
			Help:      "Records held back for a timestamp past the clock skew limit",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "classifier",
			Name:      "decisions_total",
			Help:      "Classifier decisions for candidate records",
		}, []string{"decision"}),
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "notifier",
			Name:      "alerts_total",
			Help:      "Alerts dispatched by kind",
		}, []string{"kind"}),
		DeliveryErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "notifier",
			Name:      "delivery_errors_total",
			Help:      "Alerts whose delivery failed on at least one sink",
		}),
		Watermark: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "poll",
			Name:      "watermark_millis",
			Help:      "Highest processed trade timestamp",
		}),
		DedupSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "poll",
			Name:      "dedup_entries",
			Help:      "Keys held by the dedup cache",
		}),
		HintsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hints",
			Name:      "received_total",
			Help:      "Push events naming the subject",
		}),
		HintsCoalesced: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hints",
			Name:      "coalesced_total",
			Help:      "Hints dropped because a poll was already pending",
		}),
	}
}
