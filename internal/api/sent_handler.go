package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/service"
)

type SentHandler struct {
	sentService *service.SentService
}

func NewSentHandler(sentService *service.SentService) *SentHandler {
	return &SentHandler{sentService: sentService}
}

// QueryBySource handles GET /sent?table_id=&record_id=.
func (h *SentHandler) QueryBySource(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	tableID := c.Query("table_id")
	recordID := c.Query("record_id")
	if tableID == "" || recordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table_id and record_id are required"})
		return
	}

	entries, err := h.sentService.QueryBySource(c.Request.Context(), tableID, recordID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
