package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/mailerr"
)

// writeError maps the pipeline error taxonomy onto HTTP statuses. The
// taxonomy errors are user-facing and returned verbatim.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mailerr.ErrMessageNotFound),
		errors.Is(err, mailerr.ErrEntryNotFound),
		errors.Is(err, mailerr.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, mailerr.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, mailerr.ErrMessageImmutable),
		errors.Is(err, mailerr.ErrAlreadySent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case mailerr.IsCapability(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
