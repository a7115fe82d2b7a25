package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailpipe/internal/api"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *api.AuthHandler,
	messageHandler *api.MessageHandler,
	outboxHandler *api.OutboxHandler,
	relationHandler *api.RelationHandler,
	sentHandler *api.SentHandler,
	accountHandler *api.AccountHandler,
	jwtSecret string,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware(), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/messages", messageHandler.Create)
		auth.GET("/messages/:id", messageHandler.Get)
		auth.PUT("/messages/:id", messageHandler.Update)
		auth.POST("/messages/:id/reply", messageHandler.Reply)
		auth.POST("/messages/:id/attachments", messageHandler.AddAttachment)
		auth.POST("/messages/:id/attachments/from-source", messageHandler.AttachFromSource)
		auth.DELETE("/messages/:id/attachments/:attachment_id", messageHandler.DeleteAttachment)

		auth.POST("/messages/:id/draft", outboxHandler.SaveDraft)
		auth.POST("/messages/:id/enqueue", outboxHandler.Enqueue)
		auth.POST("/messages/:id/send", outboxHandler.Send)

		auth.GET("/outbox", outboxHandler.List)
		auth.GET("/outbox/failed", outboxHandler.ListFailed)
		auth.GET("/outbox/:id", outboxHandler.Open)
		auth.DELETE("/outbox/:id", outboxHandler.Discard)

		auth.POST("/messages/:id/relations", relationHandler.Add)
		auth.GET("/messages/:id/relations", relationHandler.List)
		auth.GET("/messages/:id/source-state", relationHandler.SourceState)

		auth.GET("/sent", sentHandler.QueryBySource)

		auth.POST("/accounts", accountHandler.Create)
		auth.GET("/accounts", accountHandler.List)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
