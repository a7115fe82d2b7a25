package service

import (
	"context"
	"errors"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

// assertOwnerOrPrivileged is the single ownership gate called at every
// entry point that exposes a non-draft entry's contents.
func assertOwnerOrPrivileged(entry *model.OutboxEntry, actor model.Actor) error {
	if actor.Privileged() {
		return nil
	}
	if entry.OwnerID != actor.UserID {
		return mailerr.ErrPermissionDenied
	}
	return nil
}

// gates bundles the stores needed to answer "may this message still be
// touched". Embedded by the services that mutate messages or entries.
type gates struct {
	outbox OutboxStore
	sent   SentStore
}

// entryFor returns the message's outbox entry after the ownership check,
// or nil when no entry exists yet.
func (g gates) entryFor(ctx context.Context, messageID string, actor model.Actor) (*model.OutboxEntry, error) {
	entry, err := g.outbox.GetByMessageID(ctx, messageID)
	if errors.Is(err, mailerr.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.Status != model.StatusDraft {
		if err := assertOwnerOrPrivileged(entry, actor); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// checkSent rejects any touch on a message that already reached the sent
// archive.
func (g gates) checkSent(ctx context.Context, messageID string) error {
	sent, err := g.sent.ByMessageID(ctx, messageID)
	if err != nil {
		return err
	}
	if sent != nil {
		return mailerr.ErrAlreadySent
	}
	return nil
}

// editGate guards editor mutation and attachment deletion: rejected once
// the entry is queued, processing, or archived.
func (g gates) editGate(ctx context.Context, messageID string, actor model.Actor) error {
	if err := g.checkSent(ctx, messageID); err != nil {
		return err
	}
	entry, err := g.entryFor(ctx, messageID, actor)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	switch entry.Status {
	case model.StatusQueued:
		return mailerr.ErrEntryQueued
	case model.StatusProcessing:
		return mailerr.ErrEntryProcessing
	}
	return nil
}

// attachGate guards attachment addition, which stays legal while the
// entry is a draft or queued but not yet picked up.
func (g gates) attachGate(ctx context.Context, messageID string, actor model.Actor) error {
	if err := g.checkSent(ctx, messageID); err != nil {
		return err
	}
	entry, err := g.entryFor(ctx, messageID, actor)
	if err != nil {
		return err
	}
	if entry != nil && entry.Status == model.StatusProcessing {
		return mailerr.ErrEntryProcessing
	}
	return nil
}
