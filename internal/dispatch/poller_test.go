package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/model"
)

func TestPollerProcessesReadyEntries(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	ctx := context.Background()

	ready := env.seed(t)

	// A draft and a future-scheduled entry must be left alone.
	draft := &model.OutboxEntry{MessageID: "m1", Status: model.StatusDraft, OwnerID: 7}
	require.NoError(t, env.outbox.Create(ctx, draft))

	later := time.Now().Add(time.Hour)
	scheduled := &model.OutboxEntry{
		MessageID: "m1",
		AccountID: ready.AccountID,
		Connector: "stub",
		Status:    model.StatusQueued,
		OwnerID:   7,
		NotBefore: &later,
	}
	require.NoError(t, env.outbox.Create(ctx, scheduled))

	p := NewPoller(env.outbox, env.dispatcher, zap.NewNop()).WithBatchSize(10)
	p.processReady(ctx)

	assert.Equal(t, 1, env.stub.sends)
	require.Len(t, env.sent.All(), 1)

	_, err := env.outbox.GetByID(ctx, draft.ID)
	assert.NoError(t, err)
	got, err := env.outbox.GetByID(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
}
