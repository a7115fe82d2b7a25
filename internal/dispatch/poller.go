package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller scans the outbox for ready entries and hands them to the
// Dispatcher. It runs in the worker process.
type Poller struct {
	outbox     OutboxStore
	dispatcher *Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
}

func NewPoller(outbox OutboxStore, dispatcher *Dispatcher, logger *zap.Logger) *Poller {
	return &Poller{
		outbox:     outbox,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

func (p *Poller) WithInterval(interval time.Duration) *Poller {
	p.interval = interval
	return p
}

func (p *Poller) WithBatchSize(batchSize int) *Poller {
	p.batchSize = batchSize
	return p
}

// Start runs the poll loop until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		zap.Duration("interval", p.interval),
		zap.Int("batch_size", p.batchSize),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			p.processReady(ctx)
		}
	}
}

func (p *Poller) processReady(ctx context.Context) {
	entries, err := p.outbox.ListReady(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("Failed to list ready outbox entries", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	p.logger.Debug("Processing ready outbox entries", zap.Int("count", len(entries)))

	for _, entry := range entries {
		p.dispatcher.Dispatch(ctx, entry)
	}
}
