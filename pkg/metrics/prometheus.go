package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run and export outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Manager manages all Prometheus metrics for the appraisal service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline
	pipelineRuns          *prometheus.CounterVec
	stageDuration         *prometheus.HistogramVec
	stageFailures         *prometheus.CounterVec
	comparablesDegraded   prometheus.Counter
	comparablesReturned   prometheus.Histogram
	exports               *prometheus.CounterVec
	exportCompensations   *prometheus.CounterVec
	upstreamCallDurations *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "appraisal",
		subsystem:        "service",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pipelineRuns = auto.NewCounterVec(
		m.counterOpts("pipeline_runs_total", "Total number of valuation runs by outcome"),
		[]string{"outcome"},
	)
	m.stageDuration = auto.NewHistogramVec(
		m.histogramOpts("pipeline_stage_duration_milliseconds", "Duration of each pipeline stage in milliseconds", m.histogramBuckets),
		[]string{"stage"},
	)
	m.stageFailures = auto.NewCounterVec(
		m.counterOpts("pipeline_stage_failures_total", "Total number of failed runs by stage and error kind"),
		[]string{"stage", "kind"},
	)
	m.comparablesDegraded = auto.NewCounter(
		m.counterOpts("comparables_degraded_total", "Runs that completed without comparables because the provider call failed"),
	)
	m.comparablesReturned = auto.NewHistogram(
		m.histogramOpts("comparables_returned", "Number of comparable listings per successful run", []float64{0, 1, 2, 5, 10, 20, 50, 100}),
	)
	m.exports = auto.NewCounterVec(
		m.counterOpts("exports_total", "Total number of spreadsheet exports by outcome and error kind"),
		[]string{"outcome", "kind"},
	)
	m.exportCompensations = auto.NewCounterVec(
		m.counterOpts("export_compensations_total", "Deletes of uploaded files that could not be made public"),
		[]string{"outcome"},
	)
	m.upstreamCallDurations = auto.NewHistogramVec(
		m.histogramOpts("upstream_call_duration_milliseconds", "Duration of calls to external providers in milliseconds", m.histogramBuckets),
		[]string{"provider", "op"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Pipeline.

// RecordPipelineRun increments the run counter for the outcome.
func RecordPipelineRun(outcome string) {
	globalManager.pipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordStageDuration records how long a stage took.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordStageFailure counts a run that failed at stage with the given kind.
func RecordStageFailure(stage, kind string) {
	globalManager.stageFailures.WithLabelValues(stage, kind).Inc()
}

// RecordComparablesDegraded counts a run that fell back to no comparables.
func RecordComparablesDegraded() {
	globalManager.comparablesDegraded.Inc()
}

// RecordComparablesReturned observes the comparables count of a run.
func RecordComparablesReturned(n int) {
	globalManager.comparablesReturned.Observe(float64(n))
}

// RecordExport counts an export; kind is empty on success.
func RecordExport(outcome, kind string) {
	globalManager.exports.WithLabelValues(outcome, kind).Inc()
}

// RecordExportCompensation counts a compensating delete.
func RecordExportCompensation(outcome string) {
	globalManager.exportCompensations.WithLabelValues(outcome).Inc()
}

// RecordUpstreamCall records the latency of a provider call.
func RecordUpstreamCall(provider, op string, durationMs float64) {
	globalManager.upstreamCallDurations.WithLabelValues(provider, op).Observe(durationMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
