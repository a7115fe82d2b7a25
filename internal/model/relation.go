package model

import "time"

type RelationType string

const (
	RelationPrimarySource RelationType = "primary_source"
	RelationRelatedEntity RelationType = "related_entity"
)

type RelationOrigin string

const (
	OriginCompose RelationOrigin = "compose_context"
	OriginManual  RelationOrigin = "manual"
)

// Relation links a message to an arbitrary business record. Append-only,
// no dedup: a message with more than one primary-source relation is
// ambiguous and callers must disambiguate themselves.
type Relation struct {
	ID        int64
	MessageID string
	TableID   string
	RecordID  string
	Type      RelationType
	Origin    RelationOrigin
	CreatedAt time.Time
}
