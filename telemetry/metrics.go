// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	AnalysesStarted   prometheus.Counter
	AnalysesFailed    prometheus.Counter
	AnalysesSucceeded prometheus.Counter
	PeakRecordsTotal  prometheus.Counter
	MessagesRecorded  prometheus.Counter
	MessagesImported  prometheus.Counter
	MessagesSkipped   prometheus.Counter

	// Histograms (seconds)
	AnalysisDuration prometheus.Observer
	ImportDuration   prometheus.Observer

	// Gauges
	QueueDepthGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		AnalysesStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "peak_analyses_started_total", Help: "Number of peak analyses started"})
		AnalysesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "peak_analyses_failed_total", Help: "Number of peak analyses failed"})
		AnalysesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "peak_analyses_succeeded_total", Help: "Number of peak analyses succeeded"})
		PeakRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "peak_records_total", Help: "Number of peak records emitted"})
		MessagesRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_recorded_total", Help: "Number of live chat messages recorded"})
		MessagesImported = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_imported_total", Help: "Number of chat replay messages imported"})
		MessagesSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_skipped_total", Help: "Number of malformed chat messages skipped during analysis"})
		AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "peak_analysis_duration_seconds", Help: "Peak analysis duration seconds", Buckets: prometheus.DefBuckets})
		ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_import_duration_seconds", Help: "Chat replay import duration seconds", Buckets: []float64{1, 5, 15, 60, 300, 900, 1800}})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "peak_queue_depth", Help: "Current number of VODs awaiting analysis"})
	})
}

// SetQueueDepth records the current count of VODs awaiting analysis.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// AddSkippedMessages accumulates the malformed-record count from a run.
func AddSkippedMessages(n int) {
	if MessagesSkipped != nil && n > 0 {
		MessagesSkipped.Add(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
