package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
	"mailpipe/pkg/metrics"
)

type TaskStore interface {
	Create(ctx context.Context, t *model.ScheduledTask) error
	ClaimMatured(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error)
}

// Scheduler consumes matured delayed-dispatch tasks and triggers the
// Dispatcher for each referenced outbox entry. Tasks are at-most-once:
// claiming removes them, and a dispatch failure is recorded on the entry
// rather than by re-scheduling.
type Scheduler struct {
	tasks      TaskStore
	outbox     OutboxStore
	dispatcher *Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
}

func NewScheduler(tasks TaskStore, outbox OutboxStore, dispatcher *Dispatcher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:      tasks,
		outbox:     outbox,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

func (s *Scheduler) WithInterval(interval time.Duration) *Scheduler {
	s.interval = interval
	return s
}

func (s *Scheduler) WithBatchSize(batchSize int) *Scheduler {
	s.batchSize = batchSize
	return s
}

// Start runs the scheduler loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx, time.Now())
		}
	}
}

// RunOnce claims every task matured at now and dispatches its entry.
// Exposed for the tick loop and for tests.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	tasks, err := s.tasks.ClaimMatured(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to claim matured tasks", zap.Error(err))
		return
	}

	for _, task := range tasks {
		metrics.ScheduledTasksClaimed.Inc()

		entry, err := s.outbox.GetByID(ctx, task.OutboxEntryID)
		if err != nil {
			// Entry discarded between scheduling and maturity.
			if errors.Is(err, mailerr.ErrEntryNotFound) {
				s.logger.Debug("Scheduled entry no longer exists",
					zap.Int64("entry_id", task.OutboxEntryID),
				)
				continue
			}
			s.logger.Error("Failed to load scheduled entry",
				zap.Int64("entry_id", task.OutboxEntryID),
				zap.Error(err),
			)
			continue
		}

		s.dispatcher.Dispatch(ctx, entry)
	}
}
