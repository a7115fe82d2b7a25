package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/dispatch"
	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
	"mailpipe/internal/notify"
	"mailpipe/internal/testutil"
)

// stubConnector is a transport fake for exercising the full send path.
type stubConnector struct {
	caps    connector.Capability
	sendErr error
	sends   int
}

func (s *stubConnector) Name() string                       { return "stub" }
func (s *stubConnector) Capabilities() connector.Capability { return s.caps }

func (s *stubConnector) Send(context.Context, *model.Message, *model.Account) error {
	s.sends++
	return s.sendErr
}

func (s *stubConnector) Retrieve(context.Context, *model.Account, connector.RetrieveFilter) ([]connector.InboxMessage, error) {
	return nil, nil
}

func (s *stubConnector) MarkAsRead(context.Context, *model.Account, string) error { return nil }

func (s *stubConnector) Reply(context.Context, *model.Message, *model.Account) error {
	s.sends++
	return s.sendErr
}

func (s *stubConnector) ReplyAll(context.Context, *model.Message, *model.Account) error {
	s.sends++
	return s.sendErr
}

type fixture struct {
	messages  *testutil.MessageStore
	outbox    *testutil.OutboxStore
	tasks     *testutil.TaskStore
	sent      *testutil.SentStore
	accounts  *testutil.AccountStore
	relations *testutil.RelationStore
	notifier  *notify.Notifier
	stub      *stubConnector

	outboxService  *OutboxService
	messageService *MessageService

	owner model.Actor
	other model.Actor
	admin model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		messages:  testutil.NewMessageStore(),
		outbox:    testutil.NewOutboxStore(),
		tasks:     testutil.NewTaskStore(),
		sent:      testutil.NewSentStore(),
		accounts:  testutil.NewAccountStore(),
		relations: testutil.NewRelationStore(),
		notifier:  notify.New(zap.NewNop()),
		stub:      &stubConnector{caps: connector.CapAll},
		owner:     model.Actor{UserID: 1, Role: model.RoleMember},
		other:     model.Actor{UserID: 2, Role: model.RoleMember},
		admin:     model.Actor{UserID: 3, Role: model.RoleAdmin},
	}
	f.sent.Relations = f.relations

	registry := connector.NewRegistry()
	registry.Register(f.stub)

	dispatcher := dispatch.NewDispatcher(f.outbox, f.messages, f.sent, f.accounts,
		registry, f.notifier, zap.NewNop())

	f.outboxService = NewOutboxService(f.messages, f.outbox, f.tasks, f.sent,
		f.accounts, dispatcher, zap.NewNop())
	f.messageService = NewMessageService(f.messages, f.outbox, f.sent, f.notifier, zap.NewNop())
	return f
}

func (f *fixture) newMessage(t *testing.T, subject string) *model.Message {
	t.Helper()
	m, err := f.messageService.Create(context.Background(), ComposeInput{
		To:      []string{"to@example.com"},
		Subject: subject,
		Body:    "hello",
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) newAccount(t *testing.T, userID int64) *model.Account {
	t.Helper()
	a := &model.Account{UserID: userID, Address: "sender@example.com", Connector: "stub"}
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func TestSaveAsDraftIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "first subject")

	first, err := f.outboxService.SaveAsDraft(ctx, f.owner, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, first.Status)
	assert.Equal(t, "first subject", first.Description)

	second, err := f.outboxService.SaveAsDraft(ctx, f.owner, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.outbox.Len())
}

func TestEnqueueDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "launch notice")
	account := f.newAccount(t, f.owner.UserID)

	_, err := f.outboxService.SaveAsDraft(ctx, f.owner, msg.ID)
	require.NoError(t, err)

	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusQueued, entry.Status)
	require.NotNil(t, entry.AccountID)
	assert.Equal(t, account.ID, *entry.AccountID)
	assert.Equal(t, "stub", entry.Connector)
	assert.Equal(t, "launch notice", entry.Description)
	assert.Nil(t, entry.NotBefore)
	assert.Zero(t, f.tasks.Pending())
}

func TestEnqueueWithoutDraftCreatesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "direct")
	account := f.newAccount(t, f.owner.UserID)

	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, entry.Status)
	assert.Equal(t, f.owner.UserID, entry.OwnerID)
}

func TestEnqueueScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "scheduled")
	account := f.newAccount(t, f.owner.UserID)

	notBefore := time.Now().Add(2 * time.Hour).Truncate(time.Millisecond)
	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", &notBefore)
	require.NoError(t, err)

	require.NotNil(t, entry.NotBefore)
	assert.True(t, entry.NotBefore.Equal(notBefore))

	created := f.tasks.All()
	require.Len(t, created, 1)
	assert.True(t, created[0].NotBefore.Equal(notBefore))
	assert.Equal(t, entry.ID, created[0].OutboxEntryID)
}

func TestEnqueuePastTimestampSendsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "late")
	account := f.newAccount(t, f.owner.UserID)

	past := time.Now().Add(-time.Minute)
	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", &past)
	require.NoError(t, err)

	assert.Nil(t, entry.NotBefore)
	assert.Zero(t, f.tasks.Pending())
}

func TestEnqueueForeignAccountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "x")
	account := f.newAccount(t, f.other.UserID)

	_, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	assert.ErrorIs(t, err, mailerr.ErrPermissionDenied)
}

func TestEnqueueTwiceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "x")
	account := f.newAccount(t, f.owner.UserID)

	_, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)

	_, err = f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	assert.ErrorIs(t, err, mailerr.ErrEntryQueued)
	assert.ErrorIs(t, err, mailerr.ErrMessageImmutable)
}

func TestSendSynchronousSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "now")
	account := f.newAccount(t, f.owner.UserID)

	sent, err := f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
	require.NoError(t, err)
	assert.True(t, sent)

	// Success consumed the entry and archived the send.
	assert.Zero(t, f.outbox.Len())
	archive, err := f.sent.ByMessageID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, "sender@example.com", archive.SentFrom)
}

func TestSendTransportFailureIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.stub.sendErr = errors.New("connection reset")
	ctx := context.Background()
	msg := f.newMessage(t, "doomed")
	account := f.newAccount(t, f.owner.UserID)

	sent, err := f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
	require.NoError(t, err)
	assert.False(t, sent)

	entry, err := f.outbox.GetByMessageID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, entry.Status)
	assert.Equal(t, dispatch.DefaultFailureMessage, entry.ErrorMessage)
}

func TestSendAlreadySentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "once only")
	account := f.newAccount(t, f.owner.UserID)

	sent, err := f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
	require.NoError(t, err)
	require.True(t, sent)

	_, err = f.outboxService.Send(ctx, f.owner, msg.ID, account.ID, "stub")
	assert.ErrorIs(t, err, mailerr.ErrAlreadySent)
	assert.Equal(t, 1, f.stub.sends)
}

func TestSendReplyFailsOnLegacyConnector(t *testing.T) {
	f := newFixture(t)
	f.stub.caps = connector.CapSend
	ctx := context.Background()
	msg := f.newMessage(t, "re: hello")
	account := f.newAccount(t, f.owner.UserID)

	sent, err := f.outboxService.SendReply(ctx, f.owner, msg.ID, account.ID, "stub", false)
	require.NoError(t, err)
	assert.False(t, sent)

	entry, err := f.outbox.GetByMessageID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, `connector "stub" does not support replying to emails`, entry.ErrorMessage)
}

func TestOpenEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "private")
	account := f.newAccount(t, f.owner.UserID)

	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)

	_, _, err = f.outboxService.Open(ctx, f.other, entry.ID)
	assert.ErrorIs(t, err, mailerr.ErrPermissionDenied)

	// Admins bypass ownership.
	gotEntry, gotMsg, err := f.outboxService.Open(ctx, f.admin, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, gotEntry.ID)
	assert.Equal(t, msg.ID, gotMsg.ID)
}

func TestDiscardRemovesEntryAndMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "gone")

	entry, err := f.outboxService.SaveAsDraft(ctx, f.owner, msg.ID)
	require.NoError(t, err)

	require.NoError(t, f.outboxService.Discard(ctx, f.owner, entry.ID))

	assert.Zero(t, f.outbox.Len())
	_, err = f.messages.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, mailerr.ErrMessageNotFound)
}

func TestDiscardProcessingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := f.newMessage(t, "in flight")
	account := f.newAccount(t, f.owner.UserID)

	entry, err := f.outboxService.Enqueue(ctx, f.owner, msg.ID, account.ID, "stub", nil)
	require.NoError(t, err)
	claimed, err := f.outbox.ClaimProcessing(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	err = f.outboxService.Discard(ctx, f.owner, entry.ID)
	assert.ErrorIs(t, err, mailerr.ErrEntryProcessing)
}

func TestListFailedIsPrivileged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.outboxService.ListFailed(ctx, f.owner, 10)
	assert.ErrorIs(t, err, mailerr.ErrPermissionDenied)

	entries, err := f.outboxService.ListFailed(ctx, f.admin, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
