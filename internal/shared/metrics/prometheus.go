package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	casesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_created_total",
			Help: "Total number of cases created",
		},
		[]string{"region", "source"},
	)

	casesStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_status_changed_total",
			Help: "Total number of case status changes",
		},
		[]string{"from_status", "to_status"},
	)

	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocations_total",
			Help: "Total number of allocation attempts",
		},
		[]string{"outcome"},
	)

	allocationCallerDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_caller_denied_total",
			Help: "Allocation requests rejected for a non-pipeline caller identity",
		},
	)

	deadlinesBreached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_deadlines_breached_total",
			Help: "Total number of deadlines marked breached",
		},
		[]string{"obligation"},
	)

	escalationsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_raised_total",
			Help: "Total number of escalations raised",
		},
		[]string{"trigger", "severity"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sla_scan_duration_seconds",
			Help:    "Duration of a full breach scan pass",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	scanCasesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sla_scan_cases",
			Help: "Cases seen in the last breach scan pass by classification",
		},
		[]string{"classification"},
	)

	calendarWalkDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_walk_degraded_total",
			Help: "Calendar walks that hit the iteration bound (malformed calendar)",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath caps path cardinality for metrics labels
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordCaseCreated records a case creation
func RecordCaseCreated(region, source string) {
	casesCreated.WithLabelValues(region, source).Inc()
}

// RecordCaseStatusChange records a case status change
func RecordCaseStatusChange(fromStatus, toStatus string) {
	casesStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordAllocation records an allocation attempt outcome
// (allocated, already_assigned, no_candidate, error)
func RecordAllocation(outcome string) {
	allocationsTotal.WithLabelValues(outcome).Inc()
}

// RecordAllocationCallerDenied records a rejected non-pipeline caller
func RecordAllocationCallerDenied() {
	allocationCallerDenied.Inc()
}

// RecordDeadlineBreached records a deadline flipped to breached
func RecordDeadlineBreached(obligation string) {
	deadlinesBreached.WithLabelValues(obligation).Inc()
}

// RecordEscalationRaised records an escalation emission
func RecordEscalationRaised(trigger, severity string) {
	escalationsRaised.WithLabelValues(trigger, severity).Inc()
}

// RecordScanPass records a completed breach scan pass
func RecordScanPass(duration time.Duration, breached, atRisk, onTrack int) {
	scanDuration.Observe(duration.Seconds())
	scanCasesGauge.WithLabelValues("breached").Set(float64(breached))
	scanCasesGauge.WithLabelValues("at_risk").Set(float64(atRisk))
	scanCasesGauge.WithLabelValues("on_track").Set(float64(onTrack))
}

// RecordCalendarWalkDegraded records a calendar walk that hit its bound
func RecordCalendarWalkDegraded() {
	calendarWalkDegraded.Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
