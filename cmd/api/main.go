package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"mailpipe/internal/api"
	"mailpipe/internal/connector"
	"mailpipe/internal/dispatch"
	"mailpipe/internal/httpserver"
	"mailpipe/internal/notify"
	"mailpipe/internal/repository"
	"mailpipe/internal/service"
	"mailpipe/pkg/config"
	"mailpipe/pkg/db"
	"mailpipe/pkg/logger"
	"mailpipe/pkg/mq"
)

func main() {
	// Load config
	cfg, err := config.Load(config.ConfigEnv(), "")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Log.Level)
	defer zlog.Sync()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := repository.EnsureSchema(context.Background(), dbConn); err != nil {
		zlog.Fatal("schema migration failed", zap.Error(err))
	}

	// Init RabbitMQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zlog.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init connectors
	registry := connector.NewRegistry()
	registry.Register(connector.NewSMTPConnector("smtp", connector.SMTPv2))
	registry.Register(connector.NewSMTPConnector("smtp-legacy", connector.SMTPv1))
	registry.Register(connector.NewLogConnector(zlog))

	// Init notifier and MQ bridge
	notifier := notify.New(zlog)
	notify.NewMQBridge(publisher).Register(notifier)

	// Init Repositories
	userRepo := repository.NewUserRepository(dbConn)
	accountRepo := repository.NewAccountRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)
	outboxRepo := repository.NewOutboxRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn)
	relationRepo := repository.NewRelationRepository(dbConn)
	sentRepo := repository.NewSentRepository(dbConn)

	// Init Dispatcher for the synchronous send path
	dispatcher := dispatch.NewDispatcher(outboxRepo, messageRepo, sentRepo, accountRepo, registry, notifier, zlog)

	// Init Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	messageService := service.NewMessageService(messageRepo, outboxRepo, sentRepo, notifier, zlog)
	outboxService := service.NewOutboxService(messageRepo, outboxRepo, taskRepo, sentRepo, accountRepo, dispatcher, zlog)
	relationService := service.NewRelationService(messageRepo, relationRepo, notifier, zlog)
	sentService := service.NewSentService(sentRepo)

	// Init Handlers
	authHandler := api.NewAuthHandler(authService)
	messageHandler := api.NewMessageHandler(messageService)
	outboxHandler := api.NewOutboxHandler(outboxService)
	relationHandler := api.NewRelationHandler(relationService)
	sentHandler := api.NewSentHandler(sentService)
	accountHandler := api.NewAccountHandler(accountRepo)

	// Router
	router := httpserver.NewRouter(authHandler, messageHandler, outboxHandler,
		relationHandler, sentHandler, accountHandler, cfg.JWT.Secret)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		zlog.Fatal("server start failed", zap.Error(err))
	}
}
