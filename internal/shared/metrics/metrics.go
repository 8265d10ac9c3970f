package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractionStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extraction_started_total",
		Help: "Total extraction attempts started",
	})
	extractionCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extraction_completed_total",
		Help: "Total extraction attempts completed",
	})
	extractionFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extraction_failed_total",
		Help: "Total extraction attempts failed",
	})
	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "extraction_duration_ms",
		Help:    "Extraction duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	summarizeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summarize_requests_total",
		Help: "Total summarization requests by style",
	}, []string{"style"})
)

// IncExtractionStarted increments the started counter.
func IncExtractionStarted() {
	extractionStartedTotal.Inc()
}

// IncExtractionCompleted increments the completed counter.
func IncExtractionCompleted() {
	extractionCompletedTotal.Inc()
}

// IncExtractionFailed increments the failed counter.
func IncExtractionFailed() {
	extractionFailedTotal.Inc()
}

// ObserveExtractionDurationMs records an extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// IncSummarizeRequest counts a summarization request for the given style.
func IncSummarizeRequest(style string) {
	summarizeRequestsTotal.WithLabelValues(style).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
