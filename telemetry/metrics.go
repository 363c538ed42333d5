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
	MessagesIngested *prometheus.CounterVec // per platform
	BroadcastSends   *prometheus.CounterVec // per platform, outcome=ok|error
	SummaryRequests  prometheus.Counter
	SummaryFailures  prometheus.Counter
	ListenerRestarts *prometheus.CounterVec // per listener name

	// Histograms (seconds)
	SummaryDuration prometheus.Observer

	// Gauges
	ListenerUp *prometheus.GaugeVec // 1=running,0=down per listener name
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_messages_ingested_total", Help: "Chat messages persisted, by source platform"}, []string{"platform"})
		BroadcastSends = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_broadcast_sends_total", Help: "Broadcast fan-out attempts, by platform and outcome"}, []string{"platform", "outcome"})
		SummaryRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_summaries_total", Help: "Summary requests served"})
		SummaryFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_summary_failures_total", Help: "Summary requests degraded to the placeholder response"})
		ListenerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_listener_restarts_total", Help: "Supervised listener restarts, by listener"}, []string{"listener"})
		SummaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "relay_summary_duration_seconds", Help: "Summarizer call duration seconds", Buckets: prometheus.DefBuckets})
		ListenerUp = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "relay_listener_up", Help: "Listener running=1 down=0"}, []string{"listener"})
	})
}

// CountIngest increments the per-platform ingest counter if metrics are initialized.
func CountIngest(platform string) {
	if MessagesIngested != nil {
		MessagesIngested.WithLabelValues(platform).Inc()
	}
}

// CountBroadcast records one fan-out outcome for a platform.
func CountBroadcast(platform string, err error) {
	if BroadcastSends == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BroadcastSends.WithLabelValues(platform, outcome).Inc()
}

// SetListenerUp flips the per-listener gauge.
func SetListenerUp(name string, up bool) {
	if ListenerUp == nil {
		return
	}
	if up {
		ListenerUp.WithLabelValues(name).Set(1)
	} else {
		ListenerUp.WithLabelValues(name).Set(0)
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
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
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
