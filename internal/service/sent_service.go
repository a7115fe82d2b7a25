package service

import (
	"context"

	"mailpipe/internal/model"
)

// SentService exposes the read side of the sent archive.
type SentService struct {
	sent SentStore
}

func NewSentService(sent SentStore) *SentService {
	return &SentService{sent: sent}
}

// QueryBySource returns the archive entries whose message relates to the
// given table/record.
func (s *SentService) QueryBySource(ctx context.Context, tableID, recordID string) ([]*model.SentEntry, error) {
	return s.sent.BySource(ctx, tableID, recordID)
}

// QueryByEntity derives the relation key from the entity itself.
func (s *SentService) QueryByEntity(ctx context.Context, entity model.SourceEntity) ([]*model.SentEntry, error) {
	return s.sent.BySource(ctx, entity.TableID(), entity.RecordID())
}

// ByMessage returns the archive row for a single message, nil when never
// sent.
func (s *SentService) ByMessage(ctx context.Context, messageID string) (*model.SentEntry, error) {
	return s.sent.ByMessageID(ctx, messageID)
}
