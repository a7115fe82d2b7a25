package model

import "time"

// SentEntry is the append-only record of a successfully delivered message.
// Never mutated after insert.
type SentEntry struct {
	ID          int64
	MessageID   string
	AccountID   int64
	Connector   string
	SentFrom    string
	SentAt      time.Time
	Description string
}

// SourceEntity is anything that carries its own table/record identity,
// used by QueryByEntity to derive the relation key.
type SourceEntity interface {
	TableID() string
	RecordID() string
}
