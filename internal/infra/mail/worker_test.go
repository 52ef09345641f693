package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap/zaptest"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
)

func TestSendEmailHandlerDelivers(t *testing.T) {
	sender := &recordingSender{}
	handler := NewSendEmailHandler(sender, config.WorkerSettings{Timeout: time.Second}, zaptest.NewLogger(t))

	task, err := NewSendEmailTask(SendEmailPayload{To: "alice@example.com", Subject: "Verify your account", Body: "b"})
	if err != nil {
		t.Fatalf("NewSendEmailTask returned error: %v", err)
	}
	if task.Type() != TaskTypeSendEmail {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask returned error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != "Verify your account" {
		t.Fatalf("unexpected deliveries: %+v", sender.sent)
	}
}

func TestSendEmailHandlerSkipsRetryOnMalformedPayload(t *testing.T) {
	handler := NewSendEmailHandler(&recordingSender{}, config.WorkerSettings{}, zaptest.NewLogger(t))

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestSendEmailHandlerPropagatesTransportErrors(t *testing.T) {
	sendErr := errors.New("connection refused")
	handler := NewSendEmailHandler(&recordingSender{err: sendErr}, config.WorkerSettings{}, zaptest.NewLogger(t))

	payload, _ := json.Marshal(SendEmailPayload{To: "alice@example.com"})
	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, payload))
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected transport error to be retried, got %v", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("transport errors must remain retryable")
	}
}

func TestRedisConnOpt(t *testing.T) {
	opt := RedisConnOpt(config.RedisSettings{Host: "cache", Port: 6379, DB: 2, TLSEnabled: true})
	if opt.Addr != "cache:6379" || opt.DB != 2 {
		t.Fatalf("unexpected redis options: %+v", opt)
	}
	if opt.TLSConfig == nil {
		t.Fatal("expected TLS config when enabled")
	}
}
