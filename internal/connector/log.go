package connector

import (
	"context"

	"go.uber.org/zap"

	"mailpipe/internal/model"
)

// LogConnector is a development sink: it logs the send and succeeds.
type LogConnector struct {
	logger *zap.Logger
}

func NewLogConnector(logger *zap.Logger) *LogConnector {
	return &LogConnector{logger: logger}
}

func (c *LogConnector) Name() string { return "log" }

func (c *LogConnector) Capabilities() Capability {
	return CapSend | CapReply | CapReplyAll
}

func (c *LogConnector) Send(ctx context.Context, msg *model.Message, account *model.Account) error {
	c.logger.Info("log connector: message sent",
		zap.String("message_id", msg.ID),
		zap.String("from", account.Address),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

func (c *LogConnector) Retrieve(ctx context.Context, account *model.Account, filter RetrieveFilter) ([]InboxMessage, error) {
	return nil, nil
}

func (c *LogConnector) MarkAsRead(ctx context.Context, account *model.Account, externalID string) error {
	return nil
}

func (c *LogConnector) Reply(ctx context.Context, msg *model.Message, account *model.Account) error {
	return c.Send(ctx, msg, account)
}

func (c *LogConnector) ReplyAll(ctx context.Context, msg *model.Message, account *model.Account) error {
	return c.Send(ctx, msg, account)
}
