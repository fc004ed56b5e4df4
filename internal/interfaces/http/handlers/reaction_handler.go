package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	collectionapp "github.com/turtacn/flame-data/internal/application/collection"
	reactionapp "github.com/turtacn/flame-data/internal/application/reaction"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// ReactionHandler serves the reaction connectivity routes.
type ReactionHandler struct {
	svc         reactionapp.Service
	collections DefaultCollector
	logger      logging.Logger
}

func NewReactionHandler(svc reactionapp.Service, collections DefaultCollector, logger logging.Logger) *ReactionHandler {
	return &ReactionHandler{svc: svc, collections: collections, logger: logger}
}

// Search handles GET /api/reaction/connectivity?formula=&partial.
func (h *ReactionHandler) Search(c *gin.Context) {
	out, err := h.svc.Search(c.Request.Context(), formulaFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Lookup handles GET /api/reaction/lookup?type=&reactants=&products=.
func (h *ReactionHandler) Lookup(c *gin.Context) {
	typ := c.DefaultQuery("type", string(identity.KeySmiles))
	if _, err := identity.ParseKeyType(typ); err != nil {
		respondError(c, errors.Newf(errors.ErrCodeBadRequest, "Unknown key type %q", typ))
		return
	}
	if c.Query("reactants") == "" || c.Query("products") == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "Query parameters reactants and products are required"))
		return
	}
	r, err := identity.NewKey(typ, c.Query("reactants"))
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := identity.NewKey(typ, c.Query("products"))
	if err != nil {
		respondError(c, err)
		return
	}
	conn, err := h.svc.Lookup(c.Request.Context(), r, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, conn)
}

// Get handles GET /api/reaction/connectivity/:id.
func (h *ReactionHandler) Get(c *gin.Context) {
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

// Add handles POST /api/reaction/connectivity. The reaction, and through the
// collection cascade its species, land in the caller's default collection.
func (h *ReactionHandler) Add(c *gin.Context) {
	var req smilesRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req.Smiles)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.collections.AddToDefault(c.Request.Context(), currentUser(c).ID, collectionapp.KindReaction, res.ConnID); err != nil {
		h.logger.Warn("default collection update failed", logging.Int64("conn_id", res.ConnID), logging.Err(err))
	}
	respond(c, http.StatusCreated, res)
}

// UpdateTSGeometry handles PUT /api/reaction/ts/:id.
func (h *ReactionHandler) UpdateTSGeometry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req geometryRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.UpdateTSGeometry(c.Request.Context(), id, req.Geometry); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

// Delete handles DELETE /api/reaction/connectivity/:id.
func (h *ReactionHandler) Delete(c *gin.Context) {
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
