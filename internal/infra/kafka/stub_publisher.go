package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/port"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("account_id", accountID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

// PublishAccountRegistered logs iam.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent(TopicAccountRegistered, event.AccountID, event.RegisteredAt,
		zap.String("username", event.Username),
		zap.String("email", logger.MaskEmail(event.Email)),
	)
	return nil
}

// PublishAccountVerified logs iam.account.verified events.
func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	p.logEvent(TopicAccountVerified, event.AccountID, event.VerifiedAt,
		zap.String("email", logger.MaskEmail(event.Email)),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
