package usecase

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/port"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/security"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository"
)

const (
	verificationTokenBytes     = 32
	verificationSubject        = "Verify your account"
	verificationPath           = "/api/auth/verify/"
	defaultNotificationTimeout = 30 * time.Second

	// dummyPassword feeds the timing-equalisation hash on unknown-account logins.
	dummyPassword = "hostel-identity-timing-equaliser"

	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	// ErrValidation indicates malformed or missing registration input.
	ErrValidation = errors.New("validation failed")
	// ErrEmailTaken indicates another account already owns the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for unknown identifiers and wrong passwords alike.
	ErrInvalidCredentials = errors.New("incorrect username/email or password")
	// ErrInvalidAccessToken indicates the session token failed signature or claim checks.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the session token is past its expiry.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrAccountNotFound indicates a valid token whose subject no longer resolves to an account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidVerificationToken indicates the token is unknown or was already consumed.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
)

var verificationEmailTemplate = template.Must(template.New("verification").Parse(
	`<h1>Welcome to Hostel Comparison Platform!</h1>
<p>Please click the link below to verify your account:</p>
<a href="{{.Link}}">Verify Email</a>
`))

// IdentityMetrics captures telemetry hooks for identity operations.
type IdentityMetrics interface {
	IncRegistration(result, reason string)
	IncLogin(result, reason string)
	IncVerification(result, reason string)
}

// IdentityOptions configures optional behaviours for the service.
type IdentityOptions struct {
	// PublicURL prefixes verification links, e.g. http://localhost:8000.
	PublicURL           string
	NotificationTimeout time.Duration
}

// RegisterInput carries the raw registration payload.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// IdentityService implements registration, login, session resolution and email verification.
type IdentityService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	tokens   port.SessionTokenIssuer
	notifier port.Notifier
	events   port.EventPublisher
	metrics  IdentityMetrics
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newToken func() (string, error)

	publicURL     string
	notifyTimeout time.Duration

	dummyOnce sync.Once
	dummyHash string

	inflight sync.WaitGroup
}

// NewIdentityService constructs the identity service.
func NewIdentityService(accounts port.AccountRepository, hasher port.PasswordHasher, tokens port.SessionTokenIssuer, opts IdentityOptions) *IdentityService {
	svc := &IdentityService{
		accounts:      accounts,
		hasher:        hasher,
		tokens:        tokens,
		validate:      validator.New(),
		logger:        zap.NewNop(),
		now:           func() time.Time { return time.Now().UTC() },
		publicURL:     strings.TrimRight(opts.PublicURL, "/"),
		notifyTimeout: opts.NotificationTimeout,
		newToken: func() (string, error) {
			return security.GenerateSecureToken(verificationTokenBytes)
		},
	}
	if svc.notifyTimeout <= 0 {
		svc.notifyTimeout = defaultNotificationTimeout
	}
	return svc
}

// WithNotifier attaches the outbound email notifier.
func (s *IdentityService) WithNotifier(notifier port.Notifier) *IdentityService {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

// WithEvents attaches the domain event publisher.
func (s *IdentityService) WithEvents(events port.EventPublisher) *IdentityService {
	if events != nil {
		s.events = events
	}
	return s
}

// WithLogger attaches a structured logger to the service for operational diagnostics.
func (s *IdentityService) WithLogger(logger *zap.Logger) *IdentityService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics wires telemetry observers.
func (s *IdentityService) WithMetrics(metrics IdentityMetrics) *IdentityService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *IdentityService) WithNow(now func() time.Time) *IdentityService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates an unverified account and dispatches the verification email.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if err := s.validateRegistration(email, username, input.Password); err != nil {
		s.observeRegistration(resultFailure, "validation")
		return domain.Account{}, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := s.newToken()
	if err != nil {
		return domain.Account{}, fmt.Errorf("generate verification token: %w", err)
	}

	account := domain.Account{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      passwordHash,
		IsVerified:        false,
		VerificationToken: &verificationToken,
		CreatedAt:         s.now(),
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.observeRegistration(resultFailure, "email_taken")
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.dispatchVerificationEmail(ctx, created.Email, verificationToken)

	if s.events != nil {
		event := domain.AccountRegisteredEvent{
			EventID:      uuid.NewString(),
			AccountID:    created.ID,
			Username:     created.Username,
			Email:        created.Email,
			RegisteredAt: created.CreatedAt,
		}
		if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Warn("publish account registered event failed",
				zap.String("account_id", created.ID),
				zap.Error(err),
			)
		}
	}

	s.observeRegistration(resultSuccess, "")
	logger.WithContext(ctx).Info("account registered",
		zap.String("account_id", created.ID),
		zap.String("email", logger.MaskEmail(created.Email)),
	)

	return created.Sanitized(), nil
}

func (s *IdentityService) validateRegistration(email, username, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return fmt.Errorf("%w: email is not a valid address", ErrValidation)
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

// VerificationLink renders the link mailed to a newly registered account.
func (s *IdentityService) VerificationLink(token string) string {
	return s.publicURL + verificationPath + token
}

// dispatchVerificationEmail hands the message to the notifier without waiting for the outcome.
func (s *IdentityService) dispatchVerificationEmail(ctx context.Context, to, token string) {
	if s.notifier == nil {
		return
	}

	var body strings.Builder
	if err := verificationEmailTemplate.Execute(&body, struct{ Link string }{Link: s.VerificationLink(token)}); err != nil {
		s.logger.Error("render verification email failed", zap.Error(err))
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	log := logger.WithContext(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		if err := s.notifier.SendEmail(notifyCtx, to, verificationSubject, body.String()); err != nil {
			log.Warn("verification email dispatch failed",
				zap.String("email", logger.MaskEmail(to)),
				zap.Error(err),
			)
		}
	}()
}

// Drain blocks until in-flight notification dispatches have returned.
func (s *IdentityService) Drain() {
	s.inflight.Wait()
}

// Login authenticates by username, falling back to email, and issues a session token.
func (s *IdentityService) Login(ctx context.Context, identifier, password string) (domain.IssuedToken, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.observeLogin(resultFailure, "missing_credentials")
		return domain.IssuedToken{}, ErrInvalidCredentials
	}

	account, err := s.lookupLoginAccount(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.equaliseTiming(password)
			s.observeLogin(resultFailure, "invalid_credentials")
			return domain.IssuedToken{}, ErrInvalidCredentials
		}
		return domain.IssuedToken{}, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.observeLogin(resultFailure, "invalid_credentials")
		return domain.IssuedToken{}, ErrInvalidCredentials
	}

	issued, err := s.tokens.Issue(account.Email, s.now())
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue session token: %w", err)
	}

	s.observeLogin(resultSuccess, "")
	logger.WithContext(ctx).Info("login succeeded", zap.String("account_id", account.ID))

	return issued, nil
}

// lookupLoginAccount resolves identifier as a username first; a username match wins over an email match.
func (s *IdentityService) lookupLoginAccount(ctx context.Context, identifier string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return s.accounts.GetByEmail(ctx, identifier)
}

func (s *IdentityService) equaliseTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("prepare timing hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// CurrentAccount resolves the account a session token was issued for.
func (s *IdentityService) CurrentAccount(ctx context.Context, token string) (domain.Account, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return domain.Account{}, ErrExpiredAccessToken
		}
		return domain.Account{}, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return domain.Account{}, ErrInvalidAccessToken
	}

	account, err := s.accounts.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}

	return account.Sanitized(), nil
}

// VerifyEmail consumes a verification token. Each token succeeds at most once.
func (s *IdentityService) VerifyEmail(ctx context.Context, token string) (domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.observeVerification(resultFailure, "invalid_token")
		return domain.Account{}, ErrInvalidVerificationToken
	}

	account, err := s.accounts.MarkVerified(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.observeVerification(resultFailure, "invalid_token")
			return domain.Account{}, ErrInvalidVerificationToken
		}
		return domain.Account{}, fmt.Errorf("mark account verified: %w", err)
	}

	if s.events != nil {
		verifiedAt := s.now()
		if account.VerifiedAt != nil {
			verifiedAt = *account.VerifiedAt
		}
		event := domain.AccountVerifiedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			Email:      account.Email,
			VerifiedAt: verifiedAt,
		}
		if err := s.events.PublishAccountVerified(ctx, event); err != nil {
			s.logger.Warn("publish account verified event failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	s.observeVerification(resultSuccess, "")
	logger.WithContext(ctx).Info("email verified", zap.String("account_id", account.ID))

	return account.Sanitized(), nil
}

func (s *IdentityService) observeRegistration(result, reason string) {
	if s.metrics != nil {
		s.metrics.IncRegistration(result, reason)
	}
}

func (s *IdentityService) observeLogin(result, reason string) {
	if s.metrics != nil {
		s.metrics.IncLogin(result, reason)
	}
}

func (s *IdentityService) observeVerification(result, reason string) {
	if s.metrics != nil {
		s.metrics.IncVerification(result, reason)
	}
}
