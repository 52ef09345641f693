package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
)

// Worker consumes the mail queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewWorker builds an asynq server dispatching mail:send tasks to sender.
func NewWorker(redisOpt asynq.RedisConnOpt, cfg config.WorkerSettings, sender Sender, log *zap.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueMail: 1,
		},
		Logger: log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Warn("mail task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeSendEmail, NewSendEmailHandler(sender, cfg, log))

	return &Worker{server: srv, mux: mux, logger: log}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("mail worker: not configured")
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start mail worker: %w", err)
	}
	w.logger.Info("mail worker started", zap.String("queue", QueueMail))

	<-ctx.Done()
	w.logger.Info("stopping mail worker")
	w.server.Shutdown()
	return nil
}

// SendEmailHandler delivers mail:send tasks.
type SendEmailHandler struct {
	sender Sender
	cfg    config.WorkerSettings
	logger *zap.Logger
}

func NewSendEmailHandler(sender Sender, cfg config.WorkerSettings, log *zap.Logger) *SendEmailHandler {
	return &SendEmailHandler{sender: sender, cfg: cfg, logger: log}
}

func (h *SendEmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("discarding malformed mail task", zap.Error(err))
		return fmt.Errorf("decode mail task: %v: %w", err, asynq.SkipRetry)
	}

	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	if err := h.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("send email to %s: %w", logger.MaskEmail(payload.To), err)
	}
	return nil
}
