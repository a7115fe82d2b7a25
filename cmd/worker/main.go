package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/dispatch"
	"mailpipe/internal/mqhandler"
	"mailpipe/internal/notify"
	"mailpipe/internal/repository"
	"mailpipe/internal/service"
	"mailpipe/internal/util"
	"mailpipe/pkg/config"
	"mailpipe/pkg/db"
	"mailpipe/pkg/logger"
	"mailpipe/pkg/mq"
	redisclient "mailpipe/pkg/redis"
)

func main() {
	// Load config
	cfg, err := config.Load(config.ConfigEnv(), "")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Log.Level)
	defer zlog.Sync()

	zlog.Info("Starting dispatch worker...")

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := repository.EnsureSchema(context.Background(), dbConn); err != nil {
		zlog.Fatal("schema migration failed", zap.Error(err))
	}

	zlog.Info("Database connection established")

	// Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Inbound.DedupTTL)

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
	accountRepo := repository.NewAccountRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)
	outboxRepo := repository.NewOutboxRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn)
	sentRepo := repository.NewSentRepository(dbConn)

	// Init Dispatcher
	dispatcher := dispatch.NewDispatcher(outboxRepo, messageRepo, sentRepo, accountRepo, registry, notifier, zlog)

	ctx := context.Background()

	// (1) Outbox poller for queued entries
	poller := dispatch.NewPoller(outboxRepo, dispatcher, zlog).
		WithInterval(cfg.Dispatch.PollInterval).
		WithBatchSize(cfg.Dispatch.BatchSize)
	go poller.Start(ctx)

	// (2) Scheduler for deferred-delivery tasks
	scheduler := dispatch.NewScheduler(taskRepo, outboxRepo, dispatcher, zlog).
		WithInterval(cfg.Dispatch.SchedulerInterval).
		WithBatchSize(cfg.Dispatch.BatchSize)
	go scheduler.Start(ctx)

	// (3) Inbound retrieval loop
	inbound := service.NewInboundService(accountRepo, registry, deduper, publisher, zlog)
	go inbound.Run(ctx, cfg.Inbound.Interval)

	// (4) Consumer surfacing send failures for alerting
	monitor := mqhandler.NewSendFailedMonitor(zlog)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "email.send_failed.monitor.q", "email.send_failed", zlog)
	if err != nil {
		zlog.Fatal("failed to init send-failed consumer", zap.Error(err))
	}
	defer consumer.Close()
	if err := consumer.WithDeadLetter(publisher); err != nil {
		zlog.Fatal("failed to set up dead letter queue", zap.Error(err))
	}
	consumer.SetHandler(monitor.HandleSendFailed)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			zlog.Fatal("send-failed consumer failed", zap.Error(err))
		}
	}()

	zlog.Info("All loops started, worker is ready")

	// Keep worker running
	select {}
}
