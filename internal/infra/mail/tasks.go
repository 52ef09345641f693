package mail

import (
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
)

const (
	// QueueMail is the asynq queue carrying outbound email.
	QueueMail = "mail"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an asynq task for payload.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal send email payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// RedisConnOpt maps redis settings onto asynq connection options.
func RedisConnOpt(cfg config.RedisSettings) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}
