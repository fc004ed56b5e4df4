package handlers

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/flame-data/pkg/errors"
)

func runHandler(method, path, route, body string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRespondError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{errors.New(errors.ErrCodeMalformedIdentifier, "Cannot parse SMILES X"), 400, `{"error":"Cannot parse SMILES X"}`},
		{errors.New(errors.ErrCodeNotAReaction, ""), 415, `{"error":"Not a reaction SMILES string"}`},
		{errors.Unauthorized(), 401, `{"error":"Unauthorized"}`},
		{errors.New(errors.ErrCodeFeatureDisabled, "Export storage is not configured"), 501, `{"error":"Export storage is not configured"}`},
		{stderrors.New("boom"), 500, `{"error":"boom"}`},
	}
	for _, tc := range cases {
		err := tc.err
		w := runHandler(http.MethodGet, "/x", "/x", "", func(c *gin.Context) { respondError(c, err) })
		assert.Equal(t, tc.status, w.Code, tc.body)
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestRespond_Envelope(t *testing.T) {
	w := runHandler(http.MethodGet, "/x", "/x", "", func(c *gin.Context) {
		respond(c, http.StatusOK, map[string]int{"conn_id": 4})
	})
	assert.JSONEq(t, `{"contents":{"conn_id":4}}`, w.Body.String())

	w = runHandler(http.MethodDelete, "/x", "/x", "", func(c *gin.Context) {
		respond(c, http.StatusNoContent, nil)
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestPathID(t *testing.T) {
	handler := func(c *gin.Context) {
		if id, ok := pathID(c, "id"); ok {
			respond(c, http.StatusOK, id)
		}
	}
	assert.Equal(t, http.StatusOK, runHandler(http.MethodGet, "/s/12", "/s/:id", "", handler).Code)
	for _, bad := range []string{"abc", "0", "-3", "1.5"} {
		w := runHandler(http.MethodGet, "/s/"+bad, "/s/:id", "", handler)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestBindJSON(t *testing.T) {
	handler := func(c *gin.Context) {
		var req smilesRequest
		if bindJSON(c, &req) {
			respond(c, http.StatusOK, req.Smiles)
		}
	}
	w := runHandler(http.MethodPost, "/x", "/x", `{"smiles":"CCO"}`, handler)
	assert.JSONEq(t, `{"contents":"CCO"}`, w.Body.String())

	w = runHandler(http.MethodPost, "/x", "/x", `{"smiles":`, handler)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}
