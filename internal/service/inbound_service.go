package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailpipe/internal/connector"
	"mailpipe/internal/mailerr"
	"mailpipe/internal/util"
	"mailpipe/pkg/metrics"
)

// EventPublisher is the MQ surface the inbound loop publishes to.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// InboundMessagePayload is the MQ payload for email.received.
type InboundMessagePayload struct {
	AccountID  int64     `json:"account_id"`
	Connector  string    `json:"connector"`
	ExternalID string    `json:"external_id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// InboundService walks every account with a retrieval-capable connector,
// pulls unread messages, deduplicates them, publishes email.received
// events and marks them read upstream.
type InboundService struct {
	accounts  AccountStore
	registry  *connector.Registry
	deduper   *util.Deduper
	publisher EventPublisher
	logger    *zap.Logger
}

func NewInboundService(
	accounts AccountStore,
	registry *connector.Registry,
	deduper *util.Deduper,
	publisher EventPublisher,
	logger *zap.Logger,
) *InboundService {
	return &InboundService{
		accounts:  accounts,
		registry:  registry,
		deduper:   deduper,
		publisher: publisher,
		logger:    logger,
	}
}

// Run polls all accounts on interval until ctx is cancelled.
func (s *InboundService) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("Starting inbound retrieval loop", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Inbound retrieval loop stopped")
			return
		case <-ticker.C:
			s.RetrieveAll(ctx)
		}
	}
}

// RetrieveAll runs one retrieval pass over every account. Accounts whose
// connector does not declare retrieval are skipped quietly; those are
// send-only by design, not an error.
func (s *InboundService) RetrieveAll(ctx context.Context) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list accounts for retrieval", zap.Error(err))
		return
	}

	for _, account := range accounts {
		if err := s.retrieveAccount(ctx, account.ID); err != nil {
			if mailerr.IsCapability(err) {
				continue
			}
			s.logger.Error("Inbound retrieval failed",
				zap.Int64("account_id", account.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *InboundService) retrieveAccount(ctx context.Context, accountID int64) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	msgs, err := s.registry.Retrieve(ctx, account.Connector, account, connector.RetrieveFilter{
		UnreadOnly: true,
		Limit:      100,
	})
	if err != nil {
		if !mailerr.IsCapability(err) {
			metrics.RecordInbound(account.Connector, "error")
		}
		return err
	}

	for _, msg := range msgs {
		key := fmt.Sprintf("%d:%s", account.ID, msg.ExternalID)
		if !s.deduper.AcquireOnce(ctx, "inbound", key) {
			metrics.RecordInbound(account.Connector, "duplicate")
			continue
		}

		payload := InboundMessagePayload{
			AccountID:  account.ID,
			Connector:  account.Connector,
			ExternalID: msg.ExternalID,
			From:       msg.From,
			Subject:    msg.Subject,
			Body:       msg.Body,
			ReceivedAt: msg.Date,
		}
		if err := s.publisher.Publish("email.received", payload); err != nil {
			s.logger.Error("Failed to publish inbound message",
				zap.String("external_id", msg.ExternalID),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordInbound(account.Connector, "new")

		if err := s.registry.MarkAsRead(ctx, account.Connector, account, msg.ExternalID); err != nil && !mailerr.IsCapability(err) {
			s.logger.Warn("Failed to mark message as read",
				zap.String("external_id", msg.ExternalID),
				zap.Error(err),
			)
		}
	}
	return nil
}
