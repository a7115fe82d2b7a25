package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/model"
)

// actorFrom reads the identity the auth middleware stored on the context.
func actorFrom(c *gin.Context) (model.Actor, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return model.Actor{}, false
	}
	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	return model.Actor{
		UserID: userID.(int64),
		Role:   model.Role(roleStr),
	}, true
}
