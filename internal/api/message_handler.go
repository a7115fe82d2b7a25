package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type composeRequest struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
	Bcc     []string `json:"bcc"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"is_html"`
}

func (r composeRequest) input() service.ComposeInput {
	return service.ComposeInput{
		To:      r.To,
		Cc:      r.Cc,
		Bcc:     r.Bcc,
		Subject: r.Subject,
		Body:    r.Body,
		IsHTML:  r.IsHTML,
	}
}

// Create handles POST /messages.
func (h *MessageHandler) Create(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	m, err := h.messageService.Create(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": m.ID})
}

// Reply handles POST /messages/:id/reply.
func (h *MessageHandler) Reply(c *gin.Context) {
	var req struct {
		composeRequest
		ReplyAll bool `json:"reply_all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	original, err := h.messageService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	in := req.input()
	if req.ReplyAll {
		msg, err := h.messageService.CreateReplyAll(c.Request.Context(), in, original.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message_id": msg.ID})
		return
	}
	msg, err := h.messageService.CreateReply(c.Request.Context(), in, original.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": msg.ID})
}

// Get handles GET /messages/:id.
func (h *MessageHandler) Get(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	m, err := h.messageService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Update handles PUT /messages/:id.
func (h *MessageHandler) Update(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	m, err := h.messageService.UpdateDraft(c.Request.Context(), actor, c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// AddAttachment handles POST /messages/:id/attachments.
func (h *MessageHandler) AddAttachment(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		MimeType string `json:"mime_type" binding:"required"`
		Content  string `json:"content" binding:"required"` // base64
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	att, err := h.messageService.AddAttachment(c.Request.Context(), actor, c.Param("id"), req.Name, req.MimeType, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachment_id": att.ID})
}

// AttachFromSource handles POST /messages/:id/attachments/from-source.
func (h *MessageHandler) AttachFromSource(c *gin.Context) {
	var req struct {
		TableID  string `json:"table_id" binding:"required"`
		RecordID string `json:"record_id" binding:"required"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	att, err := h.messageService.AttachFromSource(c.Request.Context(), actor, c.Param("id"), req.TableID, req.RecordID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachment_id": att.ID})
}

// DeleteAttachment handles DELETE /messages/:id/attachments/:attachment_id.
func (h *MessageHandler) DeleteAttachment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	attachmentID, err := strconv.ParseInt(c.Param("attachment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment id"})
		return
	}

	if err := h.messageService.DeleteAttachment(c.Request.Context(), actor, c.Param("id"), attachmentID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
