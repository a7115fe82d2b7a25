package connector

import (
	"context"
	"fmt"
	"sync"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

// Registry maps connector names to implementations and checks the declared
// capability set before any call reaches the plugin. New transport
// providers plug in here without touching dispatch logic.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector under its own name. Re-registering a name
// replaces the previous implementation.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

// Resolve returns the connector registered under name.
func (r *Registry) Resolve(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	if !ok {
		return nil, fmt.Errorf("unknown connector %q", name)
	}
	return c, nil
}

func (r *Registry) gated(name string, cap Capability, operation string) (Connector, error) {
	c, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if c.Capabilities()&cap == 0 {
		return nil, &mailerr.CapabilityError{Connector: name, Operation: operation}
	}
	return c, nil
}

// Send delivers msg through the named connector.
func (r *Registry) Send(ctx context.Context, name string, msg *model.Message, account *model.Account) error {
	c, err := r.gated(name, CapSend, "sending emails")
	if err != nil {
		return err
	}
	return c.Send(ctx, msg, account)
}

// Retrieve fetches inbox messages through the named connector.
func (r *Registry) Retrieve(ctx context.Context, name string, account *model.Account, filter RetrieveFilter) ([]InboxMessage, error) {
	c, err := r.gated(name, CapRetrieve, "retrieving emails")
	if err != nil {
		return nil, err
	}
	return c.Retrieve(ctx, account, filter)
}

// MarkAsRead flags a remote message as read.
func (r *Registry) MarkAsRead(ctx context.Context, name string, account *model.Account, externalID string) error {
	c, err := r.gated(name, CapMarkAsRead, "marking emails as read")
	if err != nil {
		return err
	}
	return c.MarkAsRead(ctx, account, externalID)
}

// Reply sends a reply through the named connector.
func (r *Registry) Reply(ctx context.Context, name string, msg *model.Message, account *model.Account) error {
	c, err := r.gated(name, CapReply, "replying to emails")
	if err != nil {
		return err
	}
	return c.Reply(ctx, msg, account)
}

// ReplyAll sends a reply-all through the named connector.
func (r *Registry) ReplyAll(ctx context.Context, name string, msg *model.Message, account *model.Account) error {
	c, err := r.gated(name, CapReplyAll, "replying to emails")
	if err != nil {
		return err
	}
	return c.ReplyAll(ctx, msg, account)
}
