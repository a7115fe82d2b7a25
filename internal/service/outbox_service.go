package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

// OutboxService drives the draft/queue/send lifecycle of outbox entries.
type OutboxService struct {
	messages   MessageStore
	outbox     OutboxStore
	tasks      TaskStore
	sent       SentStore
	accounts   AccountStore
	dispatcher Dispatcher
	logger     *zap.Logger
	gates
}

func NewOutboxService(
	messages MessageStore,
	outbox OutboxStore,
	tasks TaskStore,
	sent SentStore,
	accounts AccountStore,
	dispatcher Dispatcher,
	logger *zap.Logger,
) *OutboxService {
	return &OutboxService{
		messages:   messages,
		outbox:     outbox,
		tasks:      tasks,
		sent:       sent,
		accounts:   accounts,
		dispatcher: dispatcher,
		logger:     logger,
		gates:      gates{outbox: outbox, sent: sent},
	}
}

// SaveAsDraft creates or refreshes the draft entry for a message.
// Idempotent: a second call updates the existing entry instead of adding
// a duplicate.
func (s *OutboxService) SaveAsDraft(ctx context.Context, actor model.Actor, messageID string) (*model.OutboxEntry, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSent(ctx, messageID); err != nil {
		return nil, err
	}

	entry := &model.OutboxEntry{
		MessageID:   messageID,
		Status:      model.StatusDraft,
		OwnerID:     actor.UserID,
		Description: msg.Subject,
	}
	if err := s.outbox.UpsertDraft(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Enqueue transitions a draft to queued (or creates a queued entry
// directly) with account and connector attached. A future notBefore also
// creates a scheduled task and pins the entry's scheduled-send timestamp
// to exactly that value.
func (s *OutboxService) Enqueue(ctx context.Context, actor model.Actor, messageID string, accountID int64, connectorName string, notBefore *time.Time) (*model.OutboxEntry, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSent(ctx, messageID); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != actor.UserID && !actor.Privileged() {
		return nil, mailerr.ErrPermissionDenied
	}

	scheduled := notBefore
	if scheduled != nil && !scheduled.After(time.Now()) {
		scheduled = nil
	}

	entry, err := s.outbox.GetByMessageID(ctx, messageID)
	switch {
	case errors.Is(err, mailerr.ErrEntryNotFound):
		entry = &model.OutboxEntry{
			MessageID:   messageID,
			AccountID:   &accountID,
			Connector:   connectorName,
			Status:      model.StatusQueued,
			OwnerID:     actor.UserID,
			Description: msg.Subject,
			NotBefore:   scheduled,
		}
		if err := s.outbox.Create(ctx, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if entry.Status != model.StatusDraft {
			if err := assertOwnerOrPrivileged(entry, actor); err != nil {
				return nil, err
			}
		}
		switch entry.Status {
		case model.StatusQueued:
			return nil, mailerr.ErrEntryQueued
		case model.StatusProcessing:
			return nil, mailerr.ErrEntryProcessing
		}
		if err := s.outbox.SetQueued(ctx, entry.ID, accountID, connectorName, scheduled); err != nil {
			return nil, err
		}
		entry, err = s.outbox.GetByID(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
	}

	if scheduled != nil {
		task := &model.ScheduledTask{
			NotBefore:     *scheduled,
			OutboxEntryID: entry.ID,
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("schedule dispatch: %w", err)
		}
		s.logger.Info("send scheduled",
			zap.String("message_id", messageID),
			zap.Time("not_before", *scheduled),
		)
	}

	return entry, nil
}

// Send is the synchronous path: it claims (or creates) a
// processing-equivalent attempt and dispatches inline. The boolean result
// is the dispatch outcome; transport failure is not an error here — it is
// recorded on the entry for inspection.
func (s *OutboxService) Send(ctx context.Context, actor model.Actor, messageID string, accountID int64, connectorName string) (bool, error) {
	entry, err := s.prepareSend(ctx, actor, messageID, accountID, connectorName)
	if err != nil {
		return false, err
	}
	result := s.dispatcher.Dispatch(ctx, entry)
	return result.Sent, nil
}

// SendReply dispatches through the connector's reply (or reply-all)
// capability with the same lifecycle as Send.
func (s *OutboxService) SendReply(ctx context.Context, actor model.Actor, messageID string, accountID int64, connectorName string, replyAll bool) (bool, error) {
	entry, err := s.prepareSend(ctx, actor, messageID, accountID, connectorName)
	if err != nil {
		return false, err
	}
	result := s.dispatcher.DispatchReply(ctx, entry, replyAll)
	return result.Sent, nil
}

func (s *OutboxService) prepareSend(ctx context.Context, actor model.Actor, messageID string, accountID int64, connectorName string) (*model.OutboxEntry, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSent(ctx, messageID); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != actor.UserID && !actor.Privileged() {
		return nil, mailerr.ErrPermissionDenied
	}

	entry, err := s.outbox.GetByMessageID(ctx, messageID)
	switch {
	case errors.Is(err, mailerr.ErrEntryNotFound):
		entry = &model.OutboxEntry{
			MessageID:   messageID,
			AccountID:   &accountID,
			Connector:   connectorName,
			Status:      model.StatusProcessing,
			OwnerID:     actor.UserID,
			Description: msg.Subject,
		}
		if err := s.outbox.Create(ctx, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if entry.Status == model.StatusProcessing {
			return nil, mailerr.ErrEntryProcessing
		}
		if entry.Status != model.StatusDraft {
			if err := assertOwnerOrPrivileged(entry, actor); err != nil {
				return nil, err
			}
		}
		if err := s.outbox.SetQueued(ctx, entry.ID, accountID, connectorName, nil); err != nil {
			return nil, err
		}
		entry, err = s.outbox.GetByID(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// Open loads an entry with its message for the editor, enforcing the
// ownership and already-sent gates.
func (s *OutboxService) Open(ctx context.Context, actor model.Actor, entryID int64) (*model.OutboxEntry, *model.Message, error) {
	entry, err := s.outbox.GetByID(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	if entry.Status != model.StatusDraft {
		if err := assertOwnerOrPrivileged(entry, actor); err != nil {
			return nil, nil, err
		}
	}
	if err := s.checkSent(ctx, entry.MessageID); err != nil {
		return nil, nil, err
	}
	msg, err := s.messages.Get(ctx, entry.MessageID)
	if err != nil {
		return nil, nil, err
	}
	return entry, msg, nil
}

// Discard removes a draft or queued entry together with its message.
// Once processing has started the attempt runs to completion and cannot
// be cancelled.
func (s *OutboxService) Discard(ctx context.Context, actor model.Actor, entryID int64) error {
	entry, err := s.outbox.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status != model.StatusDraft {
		if err := assertOwnerOrPrivileged(entry, actor); err != nil {
			return err
		}
	}
	if entry.Status == model.StatusProcessing {
		return mailerr.ErrEntryProcessing
	}

	if err := s.outbox.Delete(ctx, entry.ID); err != nil {
		return err
	}
	// Message deletion is best effort: it may already be gone.
	if err := s.messages.Delete(ctx, entry.MessageID); err != nil &&
		!errors.Is(err, mailerr.ErrMessageNotFound) {
		return err
	}
	s.logger.Info("outbox entry discarded",
		zap.Int64("entry_id", entry.ID),
		zap.String("message_id", entry.MessageID),
	)
	return nil
}

// ListByOwner returns the actor's entries for the outbox view.
func (s *OutboxService) ListByOwner(ctx context.Context, actor model.Actor) ([]*model.OutboxEntry, error) {
	return s.outbox.ListByOwner(ctx, actor.UserID)
}

// ListFailed returns failed entries for diagnostics. Privileged only.
func (s *OutboxService) ListFailed(ctx context.Context, actor model.Actor, limit int) ([]*model.OutboxEntry, error) {
	if !actor.Privileged() {
		return nil, mailerr.ErrPermissionDenied
	}
	return s.outbox.ListFailed(ctx, limit)
}
