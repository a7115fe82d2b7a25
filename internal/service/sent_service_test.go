package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpipe/internal/model"
)

type orderEntity struct{ id string }

func (o orderEntity) TableID() string  { return "orders" }
func (o orderEntity) RecordID() string { return o.id }

func TestSentArchiveQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := NewSentService(f.sent)
	relSvc := newRelationService(f)

	account := f.newAccount(t, f.owner.UserID)

	// Two messages about the same order, one unrelated.
	for _, subject := range []string{"order confirmation", "order shipped"} {
		msg := f.newMessage(t, subject)
		_, err := relSvc.AddRelation(ctx, msg.ID, "orders", "42",
			model.RelationPrimarySource, model.OriginCompose)
		require.NoError(t, err)
		sent, err := f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
		require.NoError(t, err)
		require.True(t, sent)
	}
	unrelated := f.newMessage(t, "newsletter")
	sentOK, err := f.outboxService.Send(ctx, f.owner, unrelated.ID, account.ID, "stub")
	require.NoError(t, err)
	require.True(t, sentOK)

	bySource, err := s.QueryBySource(ctx, "orders", "42")
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	byEntity, err := s.QueryByEntity(ctx, orderEntity{id: "42"})
	require.NoError(t, err)
	assert.Len(t, byEntity, 2)

	none, err := s.QueryBySource(ctx, "orders", "43")
	require.NoError(t, err)
	assert.Empty(t, none)

	archive, err := s.ByMessage(ctx, unrelated.ID)
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, "newsletter", archive.Description)

	missing, err := s.ByMessage(ctx, "never-sent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
