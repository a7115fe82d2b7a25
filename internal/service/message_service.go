package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailpipe/internal/model"
	"mailpipe/internal/notify"
)

// ComposeInput is the caller-supplied content of a new message. Recipient
// validity is enforced at send time, not here, so empty lists are legal.
type ComposeInput struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// MessageService owns the message aggregate: creation, pre-send mutation,
// and the immutability gates once an entry is in flight.
type MessageService struct {
	messages MessageStore
	notifier *notify.Notifier
	logger   *zap.Logger
	gates
}

func NewMessageService(
	messages MessageStore,
	outbox OutboxStore,
	sent SentStore,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages: messages,
		notifier: notifier,
		logger:   logger,
		gates:    gates{outbox: outbox, sent: sent},
	}
}

// Create builds a fresh message with a generated identifier. Always
// succeeds given a reachable store.
func (s *MessageService) Create(ctx context.Context, in ComposeInput) (*model.Message, error) {
	m := &model.Message{
		ID:      uuid.NewString(),
		Subject: in.Subject,
		Body:    in.Body,
		IsHTML:  in.IsHTML,
		To:      in.To,
		Cc:      in.Cc,
		Bcc:     in.Bcc,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Debug("message created", zap.String("message_id", m.ID))
	return m, nil
}

// CreateReply builds a new message seeded from a prior one: the original
// body is quoted below the new content.
func (s *MessageService) CreateReply(ctx context.Context, in ComposeInput, originalBody string) (*model.Message, error) {
	in.Body = quoteOriginal(in.Body, originalBody, in.IsHTML)
	return s.Create(ctx, in)
}

// CreateReplyAll is CreateReply with the full recipient set already
// expanded by the caller.
func (s *MessageService) CreateReplyAll(ctx context.Context, in ComposeInput, originalBody string) (*model.Message, error) {
	return s.CreateReply(ctx, in, originalBody)
}

func quoteOriginal(body, original string, isHTML bool) string {
	if original == "" {
		return body
	}
	if isHTML {
		return fmt.Sprintf("%s<br><br><blockquote>%s</blockquote>", body, original)
	}
	return fmt.Sprintf("%s\n\n> %s", body, original)
}

// Get loads a message; a deleted backing record surfaces as
// mailerr.ErrMessageNotFound.
func (s *MessageService) Get(ctx context.Context, id string) (*model.Message, error) {
	return s.messages.Get(ctx, id)
}

// UpdateDraft rewrites subject, body and recipients of an editable
// message.
func (s *MessageService) UpdateDraft(ctx context.Context, actor model.Actor, messageID string, in ComposeInput) (*model.Message, error) {
	if _, err := s.messages.Get(ctx, messageID); err != nil {
		return nil, err
	}
	if err := s.editGate(ctx, messageID, actor); err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:      messageID,
		Subject: in.Subject,
		Body:    in.Body,
		IsHTML:  in.IsHTML,
		To:      in.To,
		Cc:      in.Cc,
		Bcc:     in.Bcc,
	}
	if err := s.messages.Update(ctx, m); err != nil {
		return nil, err
	}
	return s.messages.Get(ctx, messageID)
}

// AddAttachment appends an attachment while the message is still
// mutable.
func (s *MessageService) AddAttachment(ctx context.Context, actor model.Actor, messageID, name, mimeType, content string) (*model.Attachment, error) {
	if _, err := s.messages.Get(ctx, messageID); err != nil {
		return nil, err
	}
	if err := s.attachGate(ctx, messageID, actor); err != nil {
		return nil, err
	}
	att := &model.Attachment{Name: name, MimeType: mimeType, Content: content}
	if err := s.messages.AddAttachment(ctx, messageID, att); err != nil {
		return nil, err
	}
	return att, nil
}

// AttachFromSource asks the subscriber chain for a related record's
// attachment content and appends it to the message.
func (s *MessageService) AttachFromSource(ctx context.Context, actor model.Actor, messageID, tableID, recordID, name string) (*model.Attachment, error) {
	candidate, ok := s.notifier.GetAttachment(notify.GetAttachment{
		TableID:   tableID,
		RecordID:  recordID,
		MessageID: messageID,
		Name:      name,
	})
	if !ok {
		return nil, fmt.Errorf("no subscriber could provide attachment %q", name)
	}
	return s.AddAttachment(ctx, actor, messageID, candidate.Name, candidate.MimeType, candidate.Content)
}

// DeleteAttachment removes an attachment; rejected once the message is
// queued, processing, or already sent.
func (s *MessageService) DeleteAttachment(ctx context.Context, actor model.Actor, messageID string, attachmentID int64) error {
	if _, err := s.messages.Get(ctx, messageID); err != nil {
		return err
	}
	if err := s.editGate(ctx, messageID, actor); err != nil {
		return err
	}
	return s.messages.DeleteAttachment(ctx, messageID, attachmentID)
}
