package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
)

const defaultDialTimeout = 10 * time.Second

var linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// Sender delivers a single rendered email.
type Sender interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// SMTPSender delivers mail over SMTP, upgrading with STARTTLS when the server offers it.
// Without credentials it only logs the message.
type SMTPSender struct {
	cfg       config.MailSettings
	logger    *zap.Logger
	tlsConfig *tls.Config
	timeout   time.Duration
	now       func() time.Time
}

// NewSMTPSender constructs an SMTP sender from mail settings.
func NewSMTPSender(cfg config.MailSettings, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:       cfg,
		logger:    log,
		tlsConfig: &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12},
		timeout:   defaultDialTimeout,
		now:       time.Now,
	}
}

// Configured reports whether SMTP credentials are present.
func (s *SMTPSender) Configured() bool {
	return s.cfg.SMTPUser != "" && s.cfg.SMTPPassword != ""
}

func (s *SMTPSender) Send(ctx context.Context, msg SendEmailPayload) error {
	if msg.To == "" {
		return errors.New("mail recipient is required")
	}

	if !s.Configured() {
		s.logger.Info("smtp credentials not configured, mock email",
			zap.String("to", logger.MaskEmail(msg.To)),
			zap.String("subject", msg.Subject),
			zap.String("body", maskLinks(msg.Body)),
		)
		return nil
	}

	message, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.SMTPHost,
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithTLSConfig(s.tlsConfig),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.SMTPUser),
		gomail.WithPassword(s.cfg.SMTPPassword),
		gomail.WithTimeout(s.timeout),
	)
	if err != nil {
		return fmt.Errorf("configure smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send email via %s:%d: %w", s.cfg.SMTPHost, s.cfg.SMTPPort, err)
	}

	s.logger.Info("email sent",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (s *SMTPSender) buildMessage(msg SendEmailPayload) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.sender()); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())
	m.SetBodyString(gomail.TypeTextHTML, msg.Body)
	return m, nil
}

func (s *SMTPSender) sender() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.SMTPUser
}

// maskLinks hides the last path segment of every URL, which carries the verification token.
func maskLinks(body string) string {
	return linkPattern.ReplaceAllStringFunc(body, func(link string) string {
		idx := strings.LastIndexByte(link, '/')
		if idx < 0 || idx == len(link)-1 {
			return link
		}
		return link[:idx+1] + logger.MaskString(link[idx+1:])
	})
}

var _ Sender = (*SMTPSender)(nil)
