package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	collectionapp "github.com/turtacn/flame-data/internal/application/collection"
	"github.com/turtacn/flame-data/pkg/errors"
)

// CollectionHandler serves the collection routes. Every route requires a
// session.
type CollectionHandler struct {
	svc collectionapp.Service
}

func NewCollectionHandler(svc collectionapp.Service) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

type membersRequest struct {
	ConnIDs []int64 `json:"conn_ids"`
}

// List handles GET /api/collection.
func (h *CollectionHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Create handles POST /api/collection.
func (h *CollectionHandler) Create(c *gin.Context) {
	var req createCollectionRequest
	if !bindJSON(c, &req) {
		return
	}
	coll, err := h.svc.Create(c.Request.Context(), currentUser(c).ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, coll)
}

// Get handles GET /api/collection/:id.
func (h *CollectionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Delete handles DELETE /api/collection/:id.
func (h *CollectionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

// AddSpecies handles POST /api/collection/species/:id.
func (h *CollectionHandler) AddSpecies(c *gin.Context) { h.members(c, collectionapp.KindSpecies, true) }

// RemoveSpecies handles DELETE /api/collection/species/:id.
func (h *CollectionHandler) RemoveSpecies(c *gin.Context) { h.members(c, collectionapp.KindSpecies, false) }

// AddReactions handles POST /api/collection/reaction/:id.
func (h *CollectionHandler) AddReactions(c *gin.Context) { h.members(c, collectionapp.KindReaction, true) }

// RemoveReactions handles DELETE /api/collection/reaction/:id. Participant
// species stay in the collection.
func (h *CollectionHandler) RemoveReactions(c *gin.Context) {
	h.members(c, collectionapp.KindReaction, false)
}

func (h *CollectionHandler) members(c *gin.Context, kind collectionapp.Kind, add bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req membersRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.ConnIDs) == 0 {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "conn_ids must not be empty"))
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c).ID
	if add {
		if err := h.svc.Add(ctx, userID, id, kind, req.ConnIDs); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, nil)
		return
	}
	if err := h.svc.Remove(ctx, userID, id, kind, req.ConnIDs); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

// Export handles POST /api/collection/:id/export.
func (h *CollectionHandler) Export(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Export(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}
