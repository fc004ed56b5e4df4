package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppMetrics_Recorders(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "POST", "/api/species/connectivity", 201, 20*time.Millisecond)
	RecordOracleCall(m, "stereoisomers", nil, time.Second)
	RecordOracleCall(m, "stereoisomers", errors.New("timeout"), time.Second)
	RecordCacheAccess(m, "inchi", true)
	RecordCacheAccess(m, "inchi", false)
	RecordAuthAttempt(m, "login", false)
	RecordDBPool(m, "postgres", 7, 2)
	RecordError(m, "http", "CHEM_001")
	m.ConnectivityCreated.WithLabelValues("species").Inc()
	m.EventsPublished.WithLabelValues("species.connectivity.created").Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_http_requests_total{method="POST",path="/api/species/connectivity",status_code="201"} 1`)
	assert.Contains(t, out, `test_oracle_calls_total{operation="stereoisomers",status="success"} 1`)
	assert.Contains(t, out, `test_oracle_calls_total{operation="stereoisomers",status="failure"} 1`)
	assert.Contains(t, out, `test_oracle_cache_hits_total{operation="inchi"} 1`)
	assert.Contains(t, out, `test_oracle_cache_misses_total{operation="inchi"} 1`)
	assert.Contains(t, out, `test_auth_attempts_total{action="login",result="failure"} 1`)
	assert.Contains(t, out, `test_db_pool_open_connections{db="postgres"} 7`)
	assert.Contains(t, out, `test_db_pool_in_use_connections{db="postgres"} 2`)
	assert.Contains(t, out, `test_errors_total{code="CHEM_001",component="http"} 1`)
	assert.Contains(t, out, `test_connectivity_created_total{kind="species"} 1`)
}

func TestNewAppMetrics_Twice(t *testing.T) {
	c := newTestCollector(t)
	assert.NotPanics(t, func() {
		NewAppMetrics(c)
		NewAppMetrics(c)
	})
}
