package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	// Database Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	// Guidance Metrics
	GuidanceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_operations_total",
			Help: "Total number of guidance state machine operations",
		},
		[]string{"operation", "status"}, // start/complete_step/skip/view, ok/error
	)

	// Event Metrics
	OnboardingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_events_total",
			Help: "Total number of onboarding events appended",
		},
		[]string{"kind"},
	)

	// Analytics Metrics
	AnalyticsRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_recompute_duration_seconds",
			Help:    "Duration of analytics rollup recomputation",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	AnalyticsRecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_recompute_total",
			Help: "Total number of analytics recomputations",
		},
		[]string{"status"}, // ok, cached_fallback, error
	)

	SkippedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_skipped_records_total",
			Help: "Total malformed event records excluded from aggregation",
		},
	)
)

// MetricsMiddleware handles basic HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		c.Next()

		HTTPRequestsTotal.WithLabelValues(
			method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		HTTPRequestDuration.WithLabelValues(
			method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// TrackDBOperation tracks database operation duration
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackGuidanceOperation increments the guidance operation counter
func TrackGuidanceOperation(operation, status string) {
	GuidanceOperationsTotal.WithLabelValues(operation, status).Inc()
}

// TrackOnboardingEvent counts an appended event by kind
func TrackOnboardingEvent(kind string) {
	OnboardingEventsTotal.WithLabelValues(kind).Inc()
}

// TrackAnalyticsRecompute records one rollup computation
func TrackAnalyticsRecompute(status string, duration time.Duration, skippedRecords int) {
	AnalyticsRecomputeTotal.WithLabelValues(status).Inc()
	AnalyticsRecomputeDuration.Observe(duration.Seconds())
	if skippedRecords > 0 {
		SkippedRecordsTotal.Add(float64(skippedRecords))
	}
}
