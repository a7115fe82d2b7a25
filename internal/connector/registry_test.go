package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

// stubConnector records calls and declares an arbitrary capability set.
type stubConnector struct {
	name    string
	caps    Capability
	sendErr error

	sends    int
	replies  int
	fetches  int
	markRead int
}

func (s *stubConnector) Name() string             { return s.name }
func (s *stubConnector) Capabilities() Capability { return s.caps }

func (s *stubConnector) Send(context.Context, *model.Message, *model.Account) error {
	s.sends++
	return s.sendErr
}

func (s *stubConnector) Retrieve(context.Context, *model.Account, RetrieveFilter) ([]InboxMessage, error) {
	s.fetches++
	return nil, nil
}

func (s *stubConnector) MarkAsRead(context.Context, *model.Account, string) error {
	s.markRead++
	return nil
}

func (s *stubConnector) Reply(context.Context, *model.Message, *model.Account) error {
	s.replies++
	return nil
}

func (s *stubConnector) ReplyAll(context.Context, *model.Message, *model.Account) error {
	s.replies++
	return nil
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("nope")
	require.Error(t, err)
	assert.EqualError(t, err, `unknown connector "nope"`)
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := &stubConnector{name: "smtp", caps: CapSend}
	second := &stubConnector{name: "smtp", caps: CapAll}
	r.Register(first)
	r.Register(second)

	c, err := r.Resolve("smtp")
	require.NoError(t, err)
	assert.Same(t, second, c)
}

func TestRegistryCapabilityGate(t *testing.T) {
	r := NewRegistry()
	legacy := &stubConnector{name: "legacy", caps: CapSend}
	r.Register(legacy)

	msg := &model.Message{ID: "m1"}
	account := &model.Account{ID: 1}

	require.NoError(t, r.Send(context.Background(), "legacy", msg, account))
	assert.Equal(t, 1, legacy.sends)

	_, err := r.Retrieve(context.Background(), "legacy", account, RetrieveFilter{})
	require.Error(t, err)
	assert.True(t, mailerr.IsCapability(err))
	assert.EqualError(t, err, `connector "legacy" does not support retrieving emails`)

	err = r.Reply(context.Background(), "legacy", msg, account)
	require.Error(t, err)
	assert.True(t, mailerr.IsCapability(err))
	assert.EqualError(t, err, `connector "legacy" does not support replying to emails`)

	err = r.MarkAsRead(context.Background(), "legacy", account, "x1")
	require.Error(t, err)
	assert.True(t, mailerr.IsCapability(err))

	// The gate rejects before the connector sees the call.
	assert.Zero(t, legacy.fetches)
	assert.Zero(t, legacy.replies)
	assert.Zero(t, legacy.markRead)
}

func TestRegistryFullCapabilityPassthrough(t *testing.T) {
	r := NewRegistry()
	full := &stubConnector{name: "smtp", caps: CapAll}
	r.Register(full)

	msg := &model.Message{ID: "m1"}
	account := &model.Account{ID: 1}
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, "smtp", msg, account))
	require.NoError(t, r.Reply(ctx, "smtp", msg, account))
	require.NoError(t, r.ReplyAll(ctx, "smtp", msg, account))
	require.NoError(t, r.MarkAsRead(ctx, "smtp", account, "x1"))
	_, err := r.Retrieve(ctx, "smtp", account, RetrieveFilter{UnreadOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 1, full.sends)
	assert.Equal(t, 2, full.replies)
	assert.Equal(t, 1, full.fetches)
	assert.Equal(t, 1, full.markRead)
}

func TestSendErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &SendError{Reason: "mailbox over quota", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "mailbox over quota: connection refused", err.Error())
}
