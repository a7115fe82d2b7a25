// Package connector holds the pluggable transport providers and the
// registry that gates every call on the provider's declared capability set.
package connector

import (
	"context"
	"time"

	"mailpipe/internal/model"
)

// Capability is one operation a connector may or may not implement.
type Capability uint8

const (
	CapSend Capability = 1 << iota
	CapRetrieve
	CapMarkAsRead
	CapReply
	CapReplyAll
)

// CapAll is the full capability set declared by current-generation
// connectors. Legacy connectors declare CapSend only.
const CapAll = CapSend | CapRetrieve | CapMarkAsRead | CapReply | CapReplyAll

// InboxMessage is a message fetched from a remote mailbox.
type InboxMessage struct {
	ExternalID string
	From       string
	Subject    string
	Body       string
	Date       time.Time
	Unread     bool
}

// RetrieveFilter narrows a Retrieve call.
type RetrieveFilter struct {
	Since      time.Time
	UnreadOnly bool
	Limit      int
}

// Connector is a transport provider for a specific mail backend. The
// registry rejects calls the connector does not declare, so an
// implementation only needs real bodies for its declared subset; the rest
// may return an error unconditionally.
type Connector interface {
	Name() string
	Capabilities() Capability

	Send(ctx context.Context, msg *model.Message, account *model.Account) error
	Retrieve(ctx context.Context, account *model.Account, filter RetrieveFilter) ([]InboxMessage, error)
	MarkAsRead(ctx context.Context, account *model.Account, externalID string) error
	Reply(ctx context.Context, msg *model.Message, account *model.Account) error
	ReplyAll(ctx context.Context, msg *model.Message, account *model.Account) error
}

// SendError marks a transport failure whose reason is safe to surface on
// the failed outbox entry. Plain errors are recorded with the default
// failure message instead.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *SendError) Unwrap() error { return e.Err }
