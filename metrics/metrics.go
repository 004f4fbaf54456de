// Package metrics exposes the Prometheus collectors the HTTP layer and the
// simulation engine publish to, registered once at package init the same
// way the teacher's metrics package does.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "elevatorsim"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled, by method/endpoint/status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request handling duration.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	avgResponseTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_response_seconds",
			Help:      "Most recent response time for a named operation.",
		},
		[]string{"operation"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors, by error type and originating component.",
		},
		[]string{"type", "component"},
	)

	memoryUsageBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Process memory usage, by kind (alloc/sys/heap_objects).",
		},
		[]string{"kind"},
	)

	requestsServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_served_total",
			Help:      "Total passenger requests served (dropped off) by the simulation.",
		},
	)

	requestWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_wait_seconds",
			Help:      "Wait time (request creation to pickup) of served requests.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	requestTravelSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_travel_seconds",
			Help:      "Travel time (pickup to dropoff) of served requests.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Number of requests currently waiting for assignment or pickup.",
		},
	)

	carUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "car_utilization_ratio",
			Help:      "Fraction of simulation time a car has spent carrying a passenger.",
		},
		[]string{"car"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock time spent processing one simulation tick.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	schedulerErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_errors_total",
			Help:      "Total scheduler passes skipped due to a guarded panic or error.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		avgResponseTime,
		errorsTotal,
		memoryUsageBytes,
		requestsServedTotal,
		requestWaitSeconds,
		requestTravelSeconds,
		pendingRequests,
		carUtilization,
		tickDurationSeconds,
		schedulerErrorsTotal,
	)
}

// RecordHTTPRequest records a completed HTTP request's outcome and latency.
func RecordHTTPRequest(method, endpoint, status string, seconds float64) {
	httpRequestsTotal.With(prometheus.Labels{"method": method, "endpoint": endpoint, "status": status}).Inc()
	httpRequestDuration.With(prometheus.Labels{"method": method, "endpoint": endpoint}).Observe(seconds)
}

// SetAvgResponseTime records the latest duration observed for a named operation.
func SetAvgResponseTime(operation string, seconds float64) {
	avgResponseTime.With(prometheus.Labels{"operation": operation}).Set(seconds)
}

// IncError increments the error counter for a type/component pair.
func IncError(errType, component string) {
	errorsTotal.With(prometheus.Labels{"type": errType, "component": component}).Inc()
}

// SetMemoryUsage records a process memory gauge by kind.
func SetMemoryUsage(kind string, bytes float64) {
	memoryUsageBytes.With(prometheus.Labels{"kind": kind}).Set(bytes)
}

// RecordRequestServed records the wait and travel time of one served request.
func RecordRequestServed(waitSeconds, travelSeconds float64) {
	requestsServedTotal.Inc()
	requestWaitSeconds.Observe(waitSeconds)
	requestTravelSeconds.Observe(travelSeconds)
}

// SetPendingRequests records the current pending-request count.
func SetPendingRequests(n int) {
	pendingRequests.Set(float64(n))
}

// SetCarUtilization records a single car's utilization ratio.
func SetCarUtilization(car string, ratio float64) {
	carUtilization.With(prometheus.Labels{"car": car}).Set(ratio)
}

// ObserveTickDuration records the wall-clock duration of one simulation tick.
func ObserveTickDuration(seconds float64) {
	tickDurationSeconds.Observe(seconds)
}

// IncSchedulerError counts one guarded scheduler-pass failure.
func IncSchedulerError() {
	schedulerErrorsTotal.Inc()
}
