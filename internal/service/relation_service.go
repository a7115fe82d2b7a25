package service

import (
	"context"

	"go.uber.org/zap"

	"mailpipe/internal/model"
	"mailpipe/internal/notify"
)

// SourceState tells a caller what a "show source" affordance should do.
type SourceState int

const (
	// SourceNone: no relation at all; hide the action.
	SourceNone SourceState = iota
	// SourceUnresolvable: a relation exists but no subscriber can turn it
	// into a navigable target; show the action disabled.
	SourceUnresolvable
	// SourceResolvable: at least one subscriber can navigate there.
	SourceResolvable
)

// RelationService maintains the many-to-many index between messages and
// the business records that motivated them.
type RelationService struct {
	messages  MessageStore
	relations RelationStore
	notifier  *notify.Notifier
	logger    *zap.Logger
}

func NewRelationService(messages MessageStore, relations RelationStore, notifier *notify.Notifier, logger *zap.Logger) *RelationService {
	return &RelationService{
		messages:  messages,
		relations: relations,
		notifier:  notifier,
		logger:    logger,
	}
}

// AddRelation appends a typed link. Append-only, no dedup.
func (s *RelationService) AddRelation(ctx context.Context, messageID, tableID, recordID string, relType model.RelationType, origin model.RelationOrigin) (*model.Relation, error) {
	if _, err := s.messages.Get(ctx, messageID); err != nil {
		return nil, err
	}
	rel := &model.Relation{
		MessageID: messageID,
		TableID:   tableID,
		RecordID:  recordID,
		Type:      relType,
		Origin:    origin,
	}
	if err := s.relations.Add(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// Relations returns every relation of a message.
func (s *RelationService) Relations(ctx context.Context, messageID string) ([]*model.Relation, error) {
	return s.relations.ByMessage(ctx, messageID)
}

// PrimarySources returns the primary-source relations. More than one
// means the source is ambiguous and the caller must disambiguate; this
// service only reports the list.
func (s *RelationService) PrimarySources(ctx context.Context, messageID string) ([]*model.Relation, error) {
	rels, err := s.relations.ByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	var primaries []*model.Relation
	for _, rel := range rels {
		if rel.Type == model.RelationPrimarySource {
			primaries = append(primaries, rel)
		}
	}
	return primaries, nil
}

// SourceState distinguishes no-relation, relation-without-resolver, and
// resolvable, by probing the show-source subscriber chain.
func (s *RelationService) SourceState(ctx context.Context, messageID string) (SourceState, error) {
	primaries, err := s.PrimarySources(ctx, messageID)
	if err != nil {
		return SourceNone, err
	}
	if len(primaries) == 0 {
		return SourceNone, nil
	}
	for _, rel := range primaries {
		if s.notifier.CanShowSource(notify.ShowSource{TableID: rel.TableID, RecordID: rel.RecordID}) {
			return SourceResolvable, nil
		}
	}
	return SourceUnresolvable, nil
}

// RelatedAttachments collects candidate attachments offered by
// subscribers for every relation of the message.
func (s *RelationService) RelatedAttachments(ctx context.Context, messageID string) ([]notify.AttachmentCandidate, error) {
	rels, err := s.relations.ByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	var out []notify.AttachmentCandidate
	for _, rel := range rels {
		out = append(out, s.notifier.FindRelatedAttachments(notify.FindRelatedAttachments{
			TableID:  rel.TableID,
			RecordID: rel.RecordID,
		})...)
	}
	return out, nil
}
