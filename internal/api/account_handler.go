package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpipe/internal/model"
	"mailpipe/internal/service"
)

type AccountHandler struct {
	accounts service.AccountStore
}

func NewAccountHandler(accounts service.AccountStore) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Connector string `json:"connector" binding:"required"`
		Host      string `json:"host"`
		IMAPHost  string `json:"imap_host"`
		Username  string `json:"username"`
		Secret    string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	account := &model.Account{
		UserID:    actor.UserID,
		Address:   req.Address,
		Connector: req.Connector,
		Host:      req.Host,
		IMAPHost:  req.IMAPHost,
		Username:  req.Username,
		Secret:    req.Secret,
	}
	if err := h.accounts.Create(c.Request.Context(), account); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": account.ID})
}

// List handles GET /accounts.
func (h *AccountHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	accounts, err := h.accounts.ListByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	// Secrets never leave the service.
	type accountView struct {
		ID        int64  `json:"id"`
		Address   string `json:"address"`
		Connector string `json:"connector"`
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{ID: a.ID, Address: a.Address, Connector: a.Connector})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": views})
}
