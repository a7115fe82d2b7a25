package service

import (
	"context"
	"time"

	"mailpipe/internal/dispatch"
	"mailpipe/internal/model"
)

// Store interfaces consumed by the services. The pgx repositories satisfy
// all of them; tests substitute in-memory implementations.

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	Update(ctx context.Context, m *model.Message) error
	Get(ctx context.Context, id string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
	AddAttachment(ctx context.Context, messageID string, att *model.Attachment) error
	DeleteAttachment(ctx context.Context, messageID string, attachmentID int64) error
}

type OutboxStore interface {
	UpsertDraft(ctx context.Context, e *model.OutboxEntry) error
	Create(ctx context.Context, e *model.OutboxEntry) error
	GetByID(ctx context.Context, id int64) (*model.OutboxEntry, error)
	GetByMessageID(ctx context.Context, messageID string) (*model.OutboxEntry, error)
	SetQueued(ctx context.Context, id int64, accountID int64, connector string, notBefore *time.Time) error
	ClaimProcessing(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.OutboxEntry, error)
	ListFailed(ctx context.Context, limit int) ([]*model.OutboxEntry, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *model.ScheduledTask) error
}

type SentStore interface {
	ByMessageID(ctx context.Context, messageID string) (*model.SentEntry, error)
	BySource(ctx context.Context, tableID, recordID string) ([]*model.SentEntry, error)
}

type RelationStore interface {
	Add(ctx context.Context, rel *model.Relation) error
	ByMessage(ctx context.Context, messageID string) ([]*model.Relation, error)
}

type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Account, error)
	ListAll(ctx context.Context) ([]*model.Account, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Dispatcher is the synchronous entry point into the dispatch path.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry *model.OutboxEntry) dispatch.Result
	DispatchReply(ctx context.Context, entry *model.OutboxEntry, replyAll bool) dispatch.Result
}
