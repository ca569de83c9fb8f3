package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsInitialized(t *testing.T) {
	Init()

	if AnalysesStarted == nil || AnalysesFailed == nil || AnalysesSucceeded == nil {
		t.Error("analysis counters not initialized")
	}
	if AnalysisDuration == nil || ImportDuration == nil {
		t.Error("duration histograms not initialized")
	}
	if QueueDepthGauge == nil {
		t.Error("queue depth gauge not initialized")
	}
}

func TestQueueDepthGauge(t *testing.T) {
	Init()

	for _, depth := range []int{0, 10, 50, 100} {
		SetQueueDepth(depth)
		// Should not panic
	}
}

func TestAddSkippedMessages(t *testing.T) {
	Init()

	AddSkippedMessages(0)
	AddSkippedMessages(3)
	// Should not panic; negative counts are ignored
	AddSkippedMessages(-1)
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestCorrelationContext(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("expected empty correlation on fresh context, got %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("correlation = %q, want abc-123", got)
	}
	if logger := LoggerWithCorr(ctx); logger == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
