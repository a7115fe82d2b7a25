package model

import "time"

type OutboxStatus string

const (
	StatusDraft      OutboxStatus = "draft"
	StatusQueued     OutboxStatus = "queued"
	StatusProcessing OutboxStatus = "processing"
	StatusFailed     OutboxStatus = "failed"
)

// OutboxEntry is one send attempt. A successful send deletes the entry and
// inserts a sent-archive row; there is no terminal "sent" status here.
type OutboxEntry struct {
	ID           int64
	MessageID    string
	AccountID    *int64 // nil while the entry is a draft
	Connector    string
	Status       OutboxStatus
	OwnerID      int64
	Description  string
	ErrorMessage string
	NotBefore    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ScheduledTask defers dispatch of an outbox entry until NotBefore.
// Tasks are claimed at most once; dispatch failure is recorded on the
// entry, never by re-scheduling the task.
type ScheduledTask struct {
	ID            int64
	NotBefore     time.Time
	OutboxEntryID int64
	CreatedAt     time.Time
}
