package notify

import (
	"time"

	"mailpipe/pkg/mq"
)

// SentEventPayload is the MQ payload for email.sent.
type SentEventPayload struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// FailedEventPayload is the MQ payload for email.send_failed.
type FailedEventPayload struct {
	MessageID    string    `json:"message_id"`
	OutboxID     int64     `json:"outbox_id"`
	Connector    string    `json:"connector"`
	ErrorMessage string    `json:"error_message"`
	FailedAt     time.Time `json:"failed_at"`
}

// MQBridge republishes lifecycle notifications to the topic exchange so
// external systems can react without being linked into this process.
type MQBridge struct {
	publisher *mq.Publisher
}

func NewMQBridge(publisher *mq.Publisher) *MQBridge {
	return &MQBridge{publisher: publisher}
}

// Register subscribes the bridge to sent/failed notifications. Publish
// errors surface as observer errors and are swallowed by the notifier's
// failure boundary.
func (b *MQBridge) Register(n *Notifier) {
	n.SubscribeSent(func(ev EmailSent) error {
		return b.publisher.Publish("email.sent", SentEventPayload{
			MessageID: ev.MessageID,
			SentAt:    time.Now(),
		})
	})
	n.SubscribeFailed(func(ev EmailSendFailed) error {
		payload := FailedEventPayload{
			MessageID: ev.MessageID,
			FailedAt:  time.Now(),
		}
		if ev.Entry != nil {
			payload.OutboxID = ev.Entry.ID
			payload.Connector = ev.Entry.Connector
			payload.ErrorMessage = ev.Entry.ErrorMessage
		}
		return b.publisher.Publish("email.send_failed", payload)
	})
}
