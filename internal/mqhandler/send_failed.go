// Package mqhandler holds the worker-side consumers of lifecycle events.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mailpipe/internal/notify"
)

// SendFailedMonitor consumes email.send_failed events and surfaces them
// in the worker's log stream for alerting. It runs out of band of the
// dispatch path: dispatch never waits on it.
type SendFailedMonitor struct {
	logger *zap.Logger
}

func NewSendFailedMonitor(logger *zap.Logger) *SendFailedMonitor {
	return &SendFailedMonitor{logger: logger}
}

func (m *SendFailedMonitor) HandleSendFailed(_ context.Context, data json.RawMessage) error {
	var payload notify.FailedEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode send_failed payload: %w", err)
	}

	m.logger.Warn("send failure reported",
		zap.String("message_id", payload.MessageID),
		zap.Int64("outbox_id", payload.OutboxID),
		zap.String("connector", payload.Connector),
		zap.String("error_message", payload.ErrorMessage),
		zap.Time("failed_at", payload.FailedAt),
	)
	return nil
}
