package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/model"
	"mailpipe/internal/service"
)

type RelationHandler struct {
	relationService *service.RelationService
}

func NewRelationHandler(relationService *service.RelationService) *RelationHandler {
	return &RelationHandler{relationService: relationService}
}

// Add handles POST /messages/:id/relations.
func (h *RelationHandler) Add(c *gin.Context) {
	var req struct {
		TableID  string `json:"table_id" binding:"required"`
		RecordID string `json:"record_id" binding:"required"`
		Type     string `json:"type" binding:"required"`
		Origin   string `json:"origin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	origin := model.RelationOrigin(req.Origin)
	if origin == "" {
		origin = model.OriginCompose
	}

	rel, err := h.relationService.AddRelation(c.Request.Context(), c.Param("id"),
		req.TableID, req.RecordID, model.RelationType(req.Type), origin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relation_id": rel.ID})
}

// List handles GET /messages/:id/relations.
func (h *RelationHandler) List(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	rels, err := h.relationService.Relations(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relations": rels})
}

// SourceState handles GET /messages/:id/source-state. The response maps
// onto the show-source affordance: hidden, disabled, or enabled.
func (h *RelationHandler) SourceState(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	state, err := h.relationService.SourceState(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	primaries, err := h.relationService.PrimarySources(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	names := map[service.SourceState]string{
		service.SourceNone:         "none",
		service.SourceUnresolvable: "unresolvable",
		service.SourceResolvable:   "resolvable",
	}
	c.JSON(http.StatusOK, gin.H{
		"state":           names[state],
		"primary_count":   len(primaries),
		"primary_sources": primaries,
	})
}
