package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/model"
	"mailpipe/internal/testutil"
)

func newScheduler(env *testEnv, tasks *testutil.TaskStore) *Scheduler {
	return NewScheduler(tasks, env.outbox, env.dispatcher, zap.NewNop())
}

func TestSchedulerDispatchesMaturedTask(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	entry := env.seed(t)
	tasks := testutil.NewTaskStore()

	now := time.Now()
	require.NoError(t, tasks.Create(context.Background(), &model.ScheduledTask{
		NotBefore:     now.Add(-time.Minute),
		OutboxEntryID: entry.ID,
	}))

	newScheduler(env, tasks).RunOnce(context.Background(), now)

	assert.Zero(t, env.outbox.Len())
	require.Len(t, env.sent.All(), 1)
	assert.Zero(t, tasks.Pending())
}

func TestSchedulerLeavesFutureTasks(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	entry := env.seed(t)
	tasks := testutil.NewTaskStore()

	now := time.Now()
	require.NoError(t, tasks.Create(context.Background(), &model.ScheduledTask{
		NotBefore:     now.Add(time.Hour),
		OutboxEntryID: entry.ID,
	}))

	newScheduler(env, tasks).RunOnce(context.Background(), now)

	// Not matured yet: nothing dispatched, task still pending.
	assert.Zero(t, env.stub.sends)
	assert.Equal(t, 1, tasks.Pending())
	stored, err := env.outbox.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, stored.Status)
}

func TestSchedulerTaskIsAtMostOnce(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	env.stub.sendErr = errors.New("relay down")
	entry := env.seed(t)
	tasks := testutil.NewTaskStore()

	now := time.Now()
	require.NoError(t, tasks.Create(context.Background(), &model.ScheduledTask{
		NotBefore:     now.Add(-time.Second),
		OutboxEntryID: entry.ID,
	}))

	s := newScheduler(env, tasks)
	s.RunOnce(context.Background(), now)

	// Failure lands on the entry; the task is consumed, not re-queued.
	assert.Zero(t, tasks.Pending())
	stored, err := env.outbox.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, DefaultFailureMessage, stored.ErrorMessage)

	// A second run finds nothing to do.
	s.RunOnce(context.Background(), now.Add(time.Minute))
	assert.Equal(t, 1, env.stub.sends)
}

func TestSchedulerSkipsDiscardedEntry(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	entry := env.seed(t)
	tasks := testutil.NewTaskStore()

	now := time.Now()
	require.NoError(t, tasks.Create(context.Background(), &model.ScheduledTask{
		NotBefore:     now.Add(-time.Second),
		OutboxEntryID: entry.ID,
	}))
	require.NoError(t, env.outbox.Delete(context.Background(), entry.ID))

	newScheduler(env, tasks).RunOnce(context.Background(), now)

	assert.Zero(t, env.stub.sends)
	assert.Zero(t, tasks.Pending())
	assert.Empty(t, env.failedEvents)
}

func TestSchedulerBatchLimit(t *testing.T) {
	env := newTestEnv(t, connector.CapAll)
	tasks := testutil.NewTaskStore()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		entry := env.seed(t)
		require.NoError(t, tasks.Create(ctx, &model.ScheduledTask{
			NotBefore:     now.Add(-time.Minute),
			OutboxEntryID: entry.ID,
		}))
	}

	s := newScheduler(env, tasks).WithBatchSize(2)
	s.RunOnce(ctx, now)
	assert.Equal(t, 2, env.stub.sends)
	assert.Equal(t, 1, tasks.Pending())

	s.RunOnce(ctx, now)
	assert.Equal(t, 3, env.stub.sends)
	assert.Zero(t, tasks.Pending())
}
