package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	collectionapp "github.com/turtacn/flame-data/internal/application/collection"
	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// DefaultCollector files new connectivities into the caller's default
// collection.
type DefaultCollector interface {
	AddToDefault(ctx context.Context, userID int64, kind collectionapp.Kind, connID int64) error
}

// SpeciesHandler serves the species connectivity routes.
type SpeciesHandler struct {
	svc         speciesapp.Service
	collections DefaultCollector
	logger      logging.Logger
}

func NewSpeciesHandler(svc speciesapp.Service, collections DefaultCollector, logger logging.Logger) *SpeciesHandler {
	return &SpeciesHandler{svc: svc, collections: collections, logger: logger.Named("species_handler")}
}

type smilesRequest struct {
	Smiles string `json:"smiles"`
}

type batchRequest struct {
	SmilesList []string `json:"smilesList"`
}

type geometryRequest struct {
	Geometry string `json:"geometry"`
}

func formulaFilter(c *gin.Context) identity.FormulaFilter {
	_, partial := c.GetQuery("partial")
	return identity.FormulaFilter{Formula: c.Query("formula"), Partial: partial}
}

// Search handles GET /api/species/connectivity?formula=&partial.
func (h *SpeciesHandler) Search(c *gin.Context) {
	out, err := h.svc.Search(c.Request.Context(), formulaFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Lookup handles GET /api/species/lookup?type=&key=.
func (h *SpeciesHandler) Lookup(c *gin.Context) {
	key, ok := queryKey(c)
	if !ok {
		return
	}
	conn, err := h.svc.Lookup(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, conn)
}

// queryKey builds an identity key from the type and key query parameters.
// An unknown type is the caller's mistake here, so it maps to 400.
func queryKey(c *gin.Context) (identity.Key, bool) {
	typ := c.DefaultQuery("type", string(identity.KeySmiles))
	if _, err := identity.ParseKeyType(typ); err != nil {
		respondError(c, errors.Newf(errors.ErrCodeBadRequest, "Unknown key type %q", typ))
		return nil, false
	}
	value := c.Query("key")
	if value == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "Query parameter key is required"))
		return nil, false
	}
	key, err := identity.NewKey(typ, value)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return key, true
}

// Get handles GET /api/species/connectivity/:id.
func (h *SpeciesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Add handles POST /api/species/connectivity and files the connectivity in
// the caller's default collection. The species is committed before the
// collection link is made, so a failed link is logged and the add still
// answers 201.
func (h *SpeciesHandler) Add(c *gin.Context) {
	var req smilesRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req.Smiles)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.collections.AddToDefault(c.Request.Context(), currentUser(c).ID, collectionapp.KindSpecies, res.ConnID); err != nil {
		h.logger.Warn("default collection update failed", logging.Int64("conn_id", res.ConnID), logging.Err(err))
	}
	respond(c, http.StatusCreated, res)
}

// AddBatch handles POST /api/species/connectivity/batch. Every item is
// reported on its own; a failing item never aborts the rest. As with Add,
// the default collection link does not change an item's outcome.
func (h *SpeciesHandler) AddBatch(c *gin.Context) {
	var req batchRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c).ID
	results := h.svc.AddBatch(ctx, req.SmilesList)
	for _, item := range results {
		if item.Error != "" {
			continue
		}
		if err := h.collections.AddToDefault(ctx, userID, collectionapp.KindSpecies, item.ConnID); err != nil {
			h.logger.Warn("default collection update failed", logging.Int64("conn_id", item.ConnID), logging.Err(err))
		}
	}
	respond(c, http.StatusCreated, results)
}

// UpdateGeometry handles PUT /api/species/:id.
func (h *SpeciesHandler) UpdateGeometry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req geometryRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.UpdateGeometry(c.Request.Context(), id, req.Geometry); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

// Delete handles DELETE /api/species/connectivity/:id.
func (h *SpeciesHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}
