package chem

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

func newTestHTTPClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(config.OracleConfig{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryWait:  time.Millisecond,
	}, logging.NewNopLogger())
}

func TestHTTPClient_InChI(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/inchi", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req smilesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CCO", req.Smiles)
		assert.True(t, req.Stereo)

		_ = json.NewEncoder(w).Encode(map[string]string{"chi": "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"})
	})

	chi, err := c.InChI(context.Background(), "CCO", true)
	require.NoError(t, err)
	assert.Equal(t, "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3", chi)
}

func TestHTTPClient_Stereoisomers(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stereoisomers", r.URL.Path)
		_, _ = w.Write([]byte(`{"isomers":[{"geometry":"3\n\nC 0 0 0","smiles":"C[C@H](O)CC","inchi":"InChI=1S/x","amchi":"AMChI=1/x"}]}`))
	})

	isos, err := c.Stereoisomers(context.Background(), "CC(O)CC")
	require.NoError(t, err)
	require.Len(t, isos, 1)
	assert.Equal(t, identity.Stereoisomer{
		Geometry: "3\n\nC 0 0 0",
		Smiles:   "C[C@H](O)CC",
		InChI:    "InChI=1S/x",
		AMChI:    "AMChI=1/x",
	}, isos[0])
}

func TestHTTPClient_ReactionChannels(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req reactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "C.[OH]", req.Reactants)
		assert.Equal(t, "[CH3].O", req.Products)
		_, _ = w.Write([]byte(`{"channels":[{"smiles":"C.[OH]>>[CH3].O","r_amchis":["a","b"],"p_amchis":["c","d"],"ts_amchi":"t","class":"abstraction"}]}`))
	})

	chs, err := c.ReactionChannels(context.Background(), "C.[OH]", "[CH3].O")
	require.NoError(t, err)
	require.Len(t, chs, 1)
	assert.Equal(t, []string{"a", "b"}, chs[0].ReactantAMChIs)
	assert.Equal(t, "abstraction", chs[0].Class)
}

func TestHTTPClient_MalformedInput(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		var calls int32
		c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":"Cannot parse SMILES C1CC("}`))
		})

		_, err := c.ConnectivitySmiles(context.Background(), "C1CC(")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedIdentifier))
		assert.Equal(t, "Cannot parse SMILES C1CC(", errors.PublicMessage(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"mult":2}`))
	})

	mult, err := c.LowSpinMultiplicity(context.Background(), "InChI=1S/HO/h1H")
	require.NoError(t, err)
	assert.Equal(t, 2, mult)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SVG(context.Background(), "C")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClient_OtherClientErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ChIKey(context.Background(), "InChI=1S/CH4/h1H4")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClient_InvalidMultiplicity(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mult":0}`))
	})

	_, err := c.LowSpinMultiplicity(context.Background(), "InChI=1S/CH4/h1H4")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleUnavailable))
}

func TestHTTPClient_Unreachable(t *testing.T) {
	c := NewHTTPClient(config.OracleConfig{
		BaseURL:    "http://127.0.0.1:1",
		Timeout:    100 * time.Millisecond,
		MaxRetries: 1,
		RetryWait:  time.Millisecond,
	}, logging.NewNopLogger())

	_, err := c.NormalizeGeometry(context.Background(), "1\n\nH 0 0 0")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleUnavailable))
	assert.Error(t, c.Ping(context.Background()))
}

func TestHTTPClient_Ping(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestBackoff(t *testing.T) {
	tr := &httpTransport{retryWait: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, tr.backoff(1))
	assert.Equal(t, 200*time.Millisecond, tr.backoff(2))
	assert.Equal(t, 400*time.Millisecond, tr.backoff(3))
	assert.Equal(t, maxRetryWait, tr.backoff(20))
}

func TestNew_UnknownTransport(t *testing.T) {
	_, err := New(context.Background(), config.OracleConfig{Transport: "smtp"}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
