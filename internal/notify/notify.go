// Package notify implements the in-process observer registry for message
// lifecycle events. Handlers run in registration order, each inside its
// own failure boundary: an observer that errors or panics never stops
// delivery to the observers after it and never leaks into the caller's
// committed state.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"mailpipe/internal/model"
	"mailpipe/pkg/metrics"
)

// EmailSent fires exactly once per successful delivery.
type EmailSent struct {
	MessageID string
	Succeeded bool // always true; kept for symmetry with EmailSendFailed
}

// EmailSendFailed fires exactly once per failed delivery and carries the
// failed outbox entry for diagnostics.
type EmailSendFailed struct {
	Entry     *model.OutboxEntry
	MessageID string
	Succeeded bool // always false
}

// ShowSource asks subscribers whether a relation target is navigable.
type ShowSource struct {
	TableID  string
	RecordID string
}

// FindRelatedAttachments asks subscribers for attachment candidates on a
// relation target.
type FindRelatedAttachments struct {
	TableID  string
	RecordID string
}

// AttachmentCandidate is one attachment a subscriber offers for a source
// record.
type AttachmentCandidate struct {
	Name     string
	MimeType string
	Content  string // base64
}

// GetAttachment asks subscribers to attach a candidate's content onto a
// message.
type GetAttachment struct {
	TableID   string
	RecordID  string
	MessageID string
	Name      string
}

// Notifier is the observer registry. Zero value is not usable; construct
// with New.
type Notifier struct {
	mu     sync.RWMutex
	logger *zap.Logger

	sentHandlers   []func(EmailSent) error
	failedHandlers []func(EmailSendFailed) error

	showSourceHandlers []func(ShowSource) bool
	findHandlers       []func(FindRelatedAttachments) []AttachmentCandidate
	getHandlers        []func(GetAttachment) (*AttachmentCandidate, bool)
}

func New(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) SubscribeSent(h func(EmailSent) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sentHandlers = append(n.sentHandlers, h)
}

func (n *Notifier) SubscribeFailed(h func(EmailSendFailed) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failedHandlers = append(n.failedHandlers, h)
}

func (n *Notifier) SubscribeShowSource(h func(ShowSource) bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.showSourceHandlers = append(n.showSourceHandlers, h)
}

func (n *Notifier) SubscribeFindRelatedAttachments(h func(FindRelatedAttachments) []AttachmentCandidate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.findHandlers = append(n.findHandlers, h)
}

func (n *Notifier) SubscribeGetAttachment(h func(GetAttachment) (*AttachmentCandidate, bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.getHandlers = append(n.getHandlers, h)
}

// PublishSent delivers an EmailSent event to every subscriber.
func (n *Notifier) PublishSent(ev EmailSent) {
	ev.Succeeded = true
	n.mu.RLock()
	handlers := n.sentHandlers
	n.mu.RUnlock()

	for _, h := range handlers {
		n.deliver("email_sent", func() error { return h(ev) })
	}
}

// PublishFailed delivers an EmailSendFailed event to every subscriber.
func (n *Notifier) PublishFailed(ev EmailSendFailed) {
	ev.Succeeded = false
	if ev.Entry != nil && ev.MessageID == "" {
		ev.MessageID = ev.Entry.MessageID
	}
	n.mu.RLock()
	handlers := n.failedHandlers
	n.mu.RUnlock()

	for _, h := range handlers {
		n.deliver("email_send_failed", func() error { return h(ev) })
	}
}

// CanShowSource reports whether any subscriber can resolve the relation
// target to a navigable destination.
func (n *Notifier) CanShowSource(ev ShowSource) bool {
	n.mu.RLock()
	handlers := n.showSourceHandlers
	n.mu.RUnlock()

	handled := false
	for _, h := range handlers {
		n.deliver("show_source", func() error {
			if h(ev) {
				handled = true
			}
			return nil
		})
	}
	return handled
}

// FindRelatedAttachments concatenates candidates from every subscriber.
func (n *Notifier) FindRelatedAttachments(ev FindRelatedAttachments) []AttachmentCandidate {
	n.mu.RLock()
	handlers := n.findHandlers
	n.mu.RUnlock()

	var out []AttachmentCandidate
	for _, h := range handlers {
		n.deliver("find_related_attachments", func() error {
			out = append(out, h(ev)...)
			return nil
		})
	}
	return out
}

// GetAttachment returns the first subscriber-provided candidate content.
func (n *Notifier) GetAttachment(ev GetAttachment) (*AttachmentCandidate, bool) {
	n.mu.RLock()
	handlers := n.getHandlers
	n.mu.RUnlock()

	var found *AttachmentCandidate
	for _, h := range handlers {
		n.deliver("get_attachment", func() error {
			if found != nil {
				return nil
			}
			if c, ok := h(ev); ok {
				found = c
			}
			return nil
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

// deliver runs one handler inside its own failure boundary. Errors and
// panics are logged and counted, never propagated.
func (n *Notifier) deliver(event string, h func() error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordObserverFailure(event)
			n.logger.Error("notification observer panicked",
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h(); err != nil {
		metrics.RecordObserverFailure(event)
		n.logger.Error("notification observer failed",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
