package model

import "time"

type RecipientKind string

const (
	RecipientTo  RecipientKind = "to"
	RecipientCc  RecipientKind = "cc"
	RecipientBcc RecipientKind = "bcc"
)

// Message is the email message aggregate: subject, body, recipient lists
// and attachments. It is mutable only until an outbox entry referencing it
// starts processing or it reaches the sent archive.
type Message struct {
	ID          string
	Subject     string
	Body        string
	IsHTML      bool
	To          []string
	Cc          []string
	Bcc         []string
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment content is stored base64-encoded. Names need not be unique;
// duplicates are kept as independent rows.
type Attachment struct {
	ID        int64
	MessageID string
	Name      string
	MimeType  string
	Content   string
}

// AllRecipients returns To, Cc and Bcc flattened in that order.
func (m *Message) AllRecipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	out = append(out, m.Bcc...)
	return out
}
