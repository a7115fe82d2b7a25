// Package dispatch owns the outbox state machine's hot path: claiming an
// entry, invoking the connector, and committing the outcome. Both the
// background poller and the foreground synchronous send funnel through the
// same Dispatcher so notifications, archiving and failure recording behave
// identically regardless of trigger.
package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
	"mailpipe/internal/notify"
	"mailpipe/pkg/metrics"
)

// DefaultFailureMessage is recorded when the connector gives no reason
// that is safe to surface.
const DefaultFailureMessage = "Failed to send email"

type OutboxStore interface {
	GetByID(ctx context.Context, id int64) (*model.OutboxEntry, error)
	ClaimProcessing(ctx context.Context, id int64) (bool, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	Delete(ctx context.Context, id int64) error
	ListReady(ctx context.Context, limit int) ([]*model.OutboxEntry, error)
}

type MessageStore interface {
	Get(ctx context.Context, id string) (*model.Message, error)
}

type SentStore interface {
	Record(ctx context.Context, e *model.SentEntry) error
}

type AccountStore interface {
	FindByID(ctx context.Context, id int64) (*model.Account, error)
}

// Result is the outcome of one dispatch attempt. Claimed is false when
// another worker won the compare-and-set race, in which case nothing
// happened here.
type Result struct {
	Claimed      bool
	Sent         bool
	ErrorMessage string
}

type Dispatcher struct {
	outbox   OutboxStore
	messages MessageStore
	sent     SentStore
	accounts AccountStore
	registry *connector.Registry
	notifier *notify.Notifier
	logger   *zap.Logger
}

func NewDispatcher(
	outbox OutboxStore,
	messages MessageStore,
	sent SentStore,
	accounts AccountStore,
	registry *connector.Registry,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		outbox:   outbox,
		messages: messages,
		sent:     sent,
		accounts: accounts,
		registry: registry,
		notifier: notifier,
		logger:   logger,
	}
}

// Dispatch runs one send attempt to completion. Exactly one notification
// fires per attempt that was claimed: EmailSent on success, EmailSendFailed
// otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, entry *model.OutboxEntry) Result {
	return d.dispatch(ctx, entry, d.registry.Send)
}

// DispatchReply runs the same lifecycle through the connector's reply or
// reply-all capability.
func (d *Dispatcher) DispatchReply(ctx context.Context, entry *model.OutboxEntry, replyAll bool) Result {
	if replyAll {
		return d.dispatch(ctx, entry, d.registry.ReplyAll)
	}
	return d.dispatch(ctx, entry, d.registry.Reply)
}

type sendFunc func(ctx context.Context, name string, msg *model.Message, account *model.Account) error

func (d *Dispatcher) dispatch(ctx context.Context, entry *model.OutboxEntry, send sendFunc) Result {
	if entry.Status != model.StatusProcessing {
		claimed, err := d.outbox.ClaimProcessing(ctx, entry.ID)
		if err != nil {
			d.logger.Error("failed to claim outbox entry",
				zap.Int64("entry_id", entry.ID),
				zap.Error(err),
			)
			return Result{}
		}
		if !claimed {
			metrics.RecordDispatch("lost_claim", entry.Connector)
			return Result{}
		}
		entry.Status = model.StatusProcessing
	}

	msg, err := d.messages.Get(ctx, entry.MessageID)
	if err != nil {
		return d.fail(ctx, entry, failureText(err))
	}

	if entry.AccountID == nil {
		return d.fail(ctx, entry, mailerr.ErrAccountNotFound.Error())
	}
	account, err := d.accounts.FindByID(ctx, *entry.AccountID)
	if err != nil {
		return d.fail(ctx, entry, failureText(err))
	}

	if err := send(ctx, entry.Connector, msg, account); err != nil {
		return d.fail(ctx, entry, failureText(err))
	}

	return d.succeed(ctx, entry, account)
}

func (d *Dispatcher) succeed(ctx context.Context, entry *model.OutboxEntry, account *model.Account) Result {
	if err := d.outbox.Delete(ctx, entry.ID); err != nil {
		d.logger.Error("failed to remove dispatched outbox entry",
			zap.Int64("entry_id", entry.ID),
			zap.Error(err),
		)
	}

	sent := &model.SentEntry{
		MessageID:   entry.MessageID,
		AccountID:   account.ID,
		Connector:   entry.Connector,
		SentFrom:    account.Address,
		SentAt:      time.Now(),
		Description: entry.Description,
	}
	if err := d.sent.Record(ctx, sent); err != nil {
		d.logger.Error("failed to record sent entry",
			zap.String("message_id", entry.MessageID),
			zap.Error(err),
		)
	}

	metrics.RecordDispatch("sent", entry.Connector)
	d.logger.Info("message dispatched",
		zap.String("message_id", entry.MessageID),
		zap.String("connector", entry.Connector),
	)

	d.notifier.PublishSent(notify.EmailSent{MessageID: entry.MessageID})
	return Result{Claimed: true, Sent: true}
}

func (d *Dispatcher) fail(ctx context.Context, entry *model.OutboxEntry, errorMessage string) Result {
	if err := d.outbox.MarkFailed(ctx, entry.ID, errorMessage); err != nil {
		d.logger.Error("failed to mark outbox entry failed",
			zap.Int64("entry_id", entry.ID),
			zap.Error(err),
		)
	}
	entry.Status = model.StatusFailed
	entry.ErrorMessage = errorMessage

	metrics.RecordDispatch("failed", entry.Connector)
	d.logger.Warn("message dispatch failed",
		zap.String("message_id", entry.MessageID),
		zap.String("connector", entry.Connector),
		zap.String("error_message", errorMessage),
	)

	d.notifier.PublishFailed(notify.EmailSendFailed{Entry: entry})
	return Result{Claimed: true, Sent: false, ErrorMessage: errorMessage}
}

// failureText decides what lands in the entry's error_message column.
// Validation and capability errors carry user-facing text; connectors may
// surface a reason through SendError; anything else maps to the default
// so transport internals never leak to end users.
func failureText(err error) string {
	if mailerr.IsCapability(err) ||
		errors.Is(err, mailerr.ErrMessageNotFound) ||
		errors.Is(err, mailerr.ErrAccountNotFound) {
		return err.Error()
	}
	var se *connector.SendError
	if errors.As(err, &se) && se.Reason != "" {
		return se.Reason
	}
	return DefaultFailureMessage
}
