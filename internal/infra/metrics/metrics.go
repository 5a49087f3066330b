package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FeedEventsTotal          = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_events_total", Help: "Feed events applied by type"}, []string{"type"})
	FeedRejectedTotal        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_rejected_total", Help: "Feed events rejected by reason"}, []string{"reason"})
	FeedDesyncsTotal         = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_desyncs_total", Help: "Feed desync transitions by reason"}, []string{"reason"})
	FeedDroppedTotal         = prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_dropped_total", Help: "Events discarded while unsynced"})
	BookResyncsTotal         = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_resyncs_total", Help: "Full snapshot reloads applied"})
	BookBestBid              = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_bid", Help: "Best bid price, 0 while the side is empty"})
	BookBestAsk              = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_ask", Help: "Best ask price, 0 while the side is empty"})
	FeedSequence             = prometheus.NewGauge(prometheus.GaugeOpts{Name: "feed_sequence", Help: "Last applied feed sequence"})
	ApplyLatencySeconds      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "apply_latency_seconds", Help: "Per-event apply latency", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10)})
	SnapshotWritesTotal      = prometheus.NewCounter(prometheus.CounterOpts{Name: "snapshot_writes_total", Help: "Snapshots persisted"})
	SnapshotWriteErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "snapshot_write_errors_total", Help: "Snapshot persist failures"})
	BroadcastPublishedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "broadcast_published_total", Help: "Touch updates published"})
	BroadcastErrorsTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "broadcast_errors_total", Help: "Touch update publish failures"})
)

// Init builds the service registry. Registration is best-effort so a
// second Init in tests stays harmless.
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		FeedEventsTotal, FeedRejectedTotal, FeedDesyncsTotal, FeedDroppedTotal,
		BookResyncsTotal, BookBestBid, BookBestAsk, FeedSequence,
		ApplyLatencySeconds,
		SnapshotWritesTotal, SnapshotWriteErrorsTotal,
		BroadcastPublishedTotal, BroadcastErrorsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
