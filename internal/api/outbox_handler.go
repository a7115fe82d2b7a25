package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/service"
)

type OutboxHandler struct {
	outboxService *service.OutboxService
}

func NewOutboxHandler(outboxService *service.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// SaveDraft handles POST /messages/:id/draft.
func (h *OutboxHandler) SaveDraft(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	entry, err := h.outboxService.SaveAsDraft(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry_id": entry.ID, "status": entry.Status})
}

// Enqueue handles POST /messages/:id/enqueue.
func (h *OutboxHandler) Enqueue(c *gin.Context) {
	var req struct {
		AccountID int64      `json:"account_id" binding:"required"`
		Connector string     `json:"connector" binding:"required"`
		NotBefore *time.Time `json:"not_before"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	entry, err := h.outboxService.Enqueue(c.Request.Context(), actor, c.Param("id"), req.AccountID, req.Connector, req.NotBefore)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry_id":   entry.ID,
		"status":     entry.Status,
		"not_before": entry.NotBefore,
	})
}

// Send handles POST /messages/:id/send, the synchronous path. The caller
// blocks until the outcome is known and receives it as a boolean.
func (h *OutboxHandler) Send(c *gin.Context) {
	var req struct {
		AccountID int64  `json:"account_id" binding:"required"`
		Connector string `json:"connector" binding:"required"`
		ReplyAll  bool   `json:"reply_all"`
		AsReply   bool   `json:"as_reply"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var sent bool
	var err error
	if req.AsReply || req.ReplyAll {
		sent, err = h.outboxService.SendReply(c.Request.Context(), actor, c.Param("id"), req.AccountID, req.Connector, req.ReplyAll)
	} else {
		sent, err = h.outboxService.Send(c.Request.Context(), actor, c.Param("id"), req.AccountID, req.Connector)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// Open handles GET /outbox/:id.
func (h *OutboxHandler) Open(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	entry, msg, err := h.outboxService.Open(c.Request.Context(), actor, entryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "message": msg})
}

// List handles GET /outbox.
func (h *OutboxHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entries, err := h.outboxService.ListByOwner(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ListFailed handles GET /outbox/failed (admin diagnostics).
func (h *OutboxHandler) ListFailed(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entries, err := h.outboxService.ListFailed(c.Request.Context(), actor, 100)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Discard handles DELETE /outbox/:id.
func (h *OutboxHandler) Discard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	if err := h.outboxService.Discard(c.Request.Context(), actor, entryID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}
