package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  map[string][]string
	body   map[string]interface{}
}

// recordingServer answers every request with contents and keeps the last
// request for inspection.
func recordingServer(t *testing.T, status int, contents interface{}) (*Client, *recorded) {
	rec := &recorded{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.body = nil
		if r.ContentLength > 0 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.body))
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeContents(w, status, contents)
	})
	return c, rec
}

func TestSpecies_Search(t *testing.T) {
	c, rec := recordingServer(t, http.StatusOK, []map[string]interface{}{{"id": 1, "formula": "CH4"}})
	out, err := c.Species().Search(context.Background(), SearchQuery{Formula: "C*H4", Partial: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "CH4", out[0].Formula)
	assert.Equal(t, "/api/species/connectivity", rec.path)
	assert.Equal(t, []string{"C*H4"}, rec.query["formula"])
	assert.Contains(t, rec.query, "partial")

	_, err = c.Species().Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, rec.query)
}

func TestSpecies_GetAndLookup(t *testing.T) {
	c, rec := recordingServer(t, http.StatusOK, []map[string]interface{}{{"id": 4, "conn_id": 2, "spin_mult": 2}})
	isomers, err := c.Species().Get(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, isomers, 1)
	assert.Equal(t, 2, isomers[0].SpinMult)
	assert.Equal(t, "/api/species/connectivity/2", rec.path)

	c, rec = recordingServer(t, http.StatusOK, map[string]interface{}{"id": 2, "conn_amchi": "AMChI=1/CH4/h1H4"})
	conn, err := c.Species().Lookup(context.Background(), "amchi", "AMChI=1/CH4/h1H4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), conn.ID)
	assert.Equal(t, "/api/species/lookup", rec.path)
	assert.Equal(t, []string{"amchi"}, rec.query["type"])
	assert.Equal(t, []string{"AMChI=1/CH4/h1H4"}, rec.query["key"])
}

func TestSpecies_AddAndBatch(t *testing.T) {
	c, rec := recordingServer(t, http.StatusCreated, map[string]interface{}{"conn_id": 5, "created": true})
	res, err := c.Species().Add(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, &AddResult{ConnID: 5, Created: true}, res)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "CCO", rec.body["smiles"])

	c, rec = recordingServer(t, http.StatusCreated, []map[string]interface{}{
		{"smiles": "C", "conn_id": 1, "created": true, "status": 201},
		{"smiles": "X", "status": 400, "error": "Cannot parse SMILES X"},
	})
	items, err := c.Species().AddBatch(context.Background(), []string{"C", "X"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].Failed())
	assert.True(t, items[1].Failed())
	assert.Equal(t, "Cannot parse SMILES X", items[1].Error)
	assert.Equal(t, "/api/species/connectivity/batch", rec.path)
	assert.Equal(t, []interface{}{"C", "X"}, rec.body["smilesList"])
}

func TestSpecies_UpdateGeometryAndDelete(t *testing.T) {
	c, rec := recordingServer(t, http.StatusNoContent, nil)
	require.NoError(t, c.Species().UpdateGeometry(context.Background(), 3, "1\n\nH 0 0 0\n"))
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/species/3", rec.path)
	assert.Equal(t, "1\n\nH 0 0 0\n", rec.body["geometry"])

	require.NoError(t, c.Species().Delete(context.Background(), 3))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/species/connectivity/3", rec.path)
	assert.Nil(t, rec.body)
}

func TestReactions(t *testing.T) {
	c, rec := recordingServer(t, http.StatusOK, map[string]interface{}{
		"id":         8,
		"r_conn_ids": []int64{1, 2},
		"reactions":  []map[string]interface{}{{"id": 11, "conn_id": 8, "ts_ids": []int64{21}}},
	})
	details, err := c.Reactions().Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), details.ID)
	assert.Equal(t, []int64{1, 2}, details.RConnIDs)
	require.Len(t, details.Reactions, 1)
	assert.Equal(t, []int64{21}, details.Reactions[0].TSIDs)
	assert.Equal(t, "/api/reaction/connectivity/8", rec.path)

	_, err = c.Reactions().Lookup(context.Background(), "smiles", "C.[OH]", "[CH3].O")
	require.NoError(t, err)
	assert.Equal(t, "/api/reaction/lookup", rec.path)
	assert.Equal(t, []string{"C.[OH]"}, rec.query["reactants"])
	assert.Equal(t, []string{"[CH3].O"}, rec.query["products"])

	_, err = c.Reactions().Add(context.Background(), "C.[OH]>>[CH3].O")
	require.NoError(t, err)
	assert.Equal(t, "C.[OH]>>[CH3].O", rec.body["smiles"])

	require.NoError(t, c.Reactions().UpdateTS(context.Background(), 21, "xyz"))
	assert.Equal(t, "/api/reaction/ts/21", rec.path)
	assert.Equal(t, http.MethodPut, rec.method)

	require.NoError(t, c.Reactions().Delete(context.Background(), 8))
	assert.Equal(t, http.MethodDelete, rec.method)
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	c, rec := recordingServer(t, http.StatusCreated, map[string]interface{}{"id": 10, "name": "Fuels", "user_id": 1})
	coll, err := c.Collections().Create(ctx, "Fuels")
	require.NoError(t, err)
	assert.Equal(t, &Collection{ID: 10, Name: "Fuels", UserID: 1}, coll)
	assert.Equal(t, "Fuels", rec.body["name"])

	require.NoError(t, c.Collections().AddSpecies(ctx, 10, 1, 2))
	assert.Equal(t, "/api/collection/species/10", rec.path)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, rec.body["conn_ids"])

	require.NoError(t, c.Collections().RemoveReactions(ctx, 10, 8))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/collection/reaction/10", rec.path)
	assert.Equal(t, []interface{}{float64(8)}, rec.body["conn_ids"])

	c, rec = recordingServer(t, http.StatusOK, []map[string]interface{}{{
		"id":      10,
		"name":    "Fuels",
		"species": []map[string]interface{}{{"id": 1, "formula": "CH4", "species_ids": []int64{3}}},
	}})
	list, err := c.Collections().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Species, 1)
	assert.Equal(t, "CH4", list[0].Species[0].Formula)
	assert.Equal(t, []int64{3}, list[0].Species[0].SpeciesIDs)
	assert.Equal(t, "/api/collection", rec.path)

	c, rec = recordingServer(t, http.StatusCreated, map[string]string{"object": "exports/10.zip", "url": "http://minio/x"})
	exp, err := c.Collections().Export(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "exports/10.zip", exp.Object)
	assert.Equal(t, "/api/collection/10/export", rec.path)
}

func TestCollections_ExportDisabled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotImplemented, "Export storage is not configured")
	})
	_, err := c.Collections().Export(context.Background(), 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotImplemented, apiErr.StatusCode)
}
