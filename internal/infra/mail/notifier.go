package mail

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/port"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
)

// QueueNotifier hands emails to the asynq mail queue for the worker to deliver.
type QueueNotifier struct {
	client   *asynq.Client
	maxRetry int
	logger   *zap.Logger
}

// NewQueueNotifier constructs a notifier enqueueing through redisOpt.
func NewQueueNotifier(redisOpt asynq.RedisConnOpt, maxRetry int, log *zap.Logger) *QueueNotifier {
	return &QueueNotifier{
		client:   asynq.NewClient(redisOpt),
		maxRetry: maxRetry,
		logger:   log,
	}
}

func (n *QueueNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: htmlBody})
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(n.maxRetry),
	)
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}

	n.logger.Debug("email queued",
		zap.String("task_id", info.ID),
		zap.String("to", logger.MaskEmail(to)),
	)
	return nil
}

func (n *QueueNotifier) Close() error {
	return n.client.Close()
}

// DirectNotifier delivers synchronously through a Sender. Used when no queue is configured.
type DirectNotifier struct {
	sender Sender
}

func NewDirectNotifier(sender Sender) *DirectNotifier {
	return &DirectNotifier{sender: sender}
}

func (n *DirectNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return n.sender.Send(ctx, SendEmailPayload{To: to, Subject: subject, Body: htmlBody})
}

var (
	_ port.Notifier = (*QueueNotifier)(nil)
	_ port.Notifier = (*DirectNotifier)(nil)
)
