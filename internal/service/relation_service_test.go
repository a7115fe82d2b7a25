package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
	"mailpipe/internal/notify"
)

func newRelationService(f *fixture) *RelationService {
	return NewRelationService(f.messages, f.relations, f.notifier, zap.NewNop())
}

func TestAddRelationRequiresMessage(t *testing.T) {
	f := newFixture(t)
	s := newRelationService(f)

	_, err := s.AddRelation(context.Background(), "missing", "orders", "42",
		model.RelationPrimarySource, model.OriginCompose)
	assert.ErrorIs(t, err, mailerr.ErrMessageNotFound)
}

func TestRelationsAreAppendOnly(t *testing.T) {
	f := newFixture(t)
	s := newRelationService(f)
	ctx := context.Background()
	msg := f.newMessage(t, "linked")

	// The same link twice stays twice; no dedup.
	for i := 0; i < 2; i++ {
		_, err := s.AddRelation(ctx, msg.ID, "orders", "42",
			model.RelationPrimarySource, model.OriginCompose)
		require.NoError(t, err)
	}
	_, err := s.AddRelation(ctx, msg.ID, "invoices", "7",
		model.RelationRelatedEntity, model.OriginManual)
	require.NoError(t, err)

	rels, err := s.Relations(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 3)

	primaries, err := s.PrimarySources(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, primaries, 2)
}

func TestSourceStateTransitions(t *testing.T) {
	f := newFixture(t)
	s := newRelationService(f)
	ctx := context.Background()
	msg := f.newMessage(t, "sourced")

	// No relation at all.
	state, err := s.SourceState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, state)

	// A related-entity link alone does not make a source.
	_, err = s.AddRelation(ctx, msg.ID, "invoices", "7",
		model.RelationRelatedEntity, model.OriginManual)
	require.NoError(t, err)
	state, err = s.SourceState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, state)

	// Primary source without a resolver.
	_, err = s.AddRelation(ctx, msg.ID, "orders", "42",
		model.RelationPrimarySource, model.OriginCompose)
	require.NoError(t, err)
	state, err = s.SourceState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceUnresolvable, state)

	// A subscriber that resolves the target flips the state.
	f.notifier.SubscribeShowSource(func(ev notify.ShowSource) bool {
		return ev.TableID == "orders"
	})
	state, err = s.SourceState(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceResolvable, state)
}

func TestRelatedAttachmentsCollectsAcrossRelations(t *testing.T) {
	f := newFixture(t)
	s := newRelationService(f)
	ctx := context.Background()
	msg := f.newMessage(t, "rich")

	_, err := s.AddRelation(ctx, msg.ID, "orders", "42",
		model.RelationPrimarySource, model.OriginCompose)
	require.NoError(t, err)
	_, err = s.AddRelation(ctx, msg.ID, "invoices", "7",
		model.RelationRelatedEntity, model.OriginManual)
	require.NoError(t, err)

	f.notifier.SubscribeFindRelatedAttachments(func(ev notify.FindRelatedAttachments) []notify.AttachmentCandidate {
		switch ev.TableID {
		case "orders":
			return []notify.AttachmentCandidate{{Name: "order.pdf"}}
		case "invoices":
			return []notify.AttachmentCandidate{{Name: "invoice.pdf"}}
		}
		return nil
	})

	out, err := s.RelatedAttachments(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
}
