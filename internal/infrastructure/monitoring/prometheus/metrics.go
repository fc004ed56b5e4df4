package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service exports.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	OracleCallsTotal    CounterVec
	OracleCallDuration  HistogramVec
	OracleCacheHits     CounterVec
	OracleCacheMisses   CounterVec
	ConnectivityCreated CounterVec
	ConnectivityDeleted CounterVec

	AuthAttemptsTotal CounterVec

	DBPoolOpen  GaugeVec
	DBPoolInUse GaugeVec

	EventsPublished CounterVec
	ErrorsTotal     CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	// Oracle calls include conformer searches and run far longer than
	// ordinary requests.
	DefaultOracleDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.OracleCallsTotal = collector.RegisterCounter("oracle_calls_total", "Chemistry oracle calls", "operation", "status")
	m.OracleCallDuration = collector.RegisterHistogram("oracle_call_duration_seconds", "Chemistry oracle call duration", DefaultOracleDurationBuckets, "operation")
	m.OracleCacheHits = collector.RegisterCounter("oracle_cache_hits_total", "Oracle cache hits", "operation")
	m.OracleCacheMisses = collector.RegisterCounter("oracle_cache_misses_total", "Oracle cache misses", "operation")
	m.ConnectivityCreated = collector.RegisterCounter("connectivity_created_total", "Connectivities inserted", "kind")
	m.ConnectivityDeleted = collector.RegisterCounter("connectivity_deleted_total", "Connectivities deleted", "kind")

	m.AuthAttemptsTotal = collector.RegisterCounter("auth_attempts_total", "Authentication attempts", "action", "result")

	m.DBPoolOpen = collector.RegisterGauge("db_pool_open_connections", "Open database connections", "db")
	m.DBPoolInUse = collector.RegisterGauge("db_pool_in_use_connections", "Database connections in use", "db")

	m.EventsPublished = collector.RegisterCounter("events_published_total", "Domain events handed to the producer", "topic")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordOracleCall(m *AppMetrics, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.OracleCallsTotal.WithLabelValues(operation, status).Inc()
	m.OracleCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCacheAccess(m *AppMetrics, operation string, hit bool) {
	if hit {
		m.OracleCacheHits.WithLabelValues(operation).Inc()
	} else {
		m.OracleCacheMisses.WithLabelValues(operation).Inc()
	}
}

func RecordAuthAttempt(m *AppMetrics, action string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.AuthAttemptsTotal.WithLabelValues(action, result).Inc()
}

func RecordDBPool(m *AppMetrics, db string, open, inUse int) {
	m.DBPoolOpen.WithLabelValues(db).Set(float64(open))
	m.DBPoolInUse.WithLabelValues(db).Set(float64(inUse))
}

func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
