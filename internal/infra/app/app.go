package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/port"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/database"
	kafkainfra "github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/kafka"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/mail"
	redisinfra "github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/redis"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/security"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/telemetry"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository/memory"
	postgresrepo "github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/repository/postgres"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/transport/http/middleware"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/transport/http/routes"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/usecase"
)

const (
	shutdownTimeout = 10 * time.Second
	devSecretBytes  = 32
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	identity *usecase.IdentityService
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	queue    *mail.QueueNotifier
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.release(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		a.tracer = tp
	}

	accounts, err := a.initStore(ctx)
	if err != nil {
		return err
	}

	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}

	secret, err := signingSecret(cfg, log)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenIssuer(security.TokenIssuerConfig{
		Secret:    secret,
		Algorithm: cfg.JWT.Algorithm,
		TTL:       cfg.JWT.AccessTokenTTL,
		Issuer:    cfg.JWT.Issuer,
	})
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	notifier, err := a.initNotifier(ctx)
	if err != nil {
		return err
	}

	identityMetrics, err := telemetry.NewIdentityMetrics(telemetry.IdentityMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init identity metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		SkipPaths: []string{"/metrics", "/healthz"},
	})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	a.identity = usecase.NewIdentityService(accounts, hasher, tokens, usecase.IdentityOptions{
		PublicURL: cfg.App.PublicURL,
	}).
		WithNotifier(notifier).
		WithEvents(a.initEvents()).
		WithMetrics(identityMetrics).
		WithLogger(log)

	deps := routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Identity: a.identity,
		Metrics:  httpMetrics,
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}
	a.engine = routes.Register(deps)

	return nil
}

func (a *Application) initStore(ctx context.Context) (port.AccountRepository, error) {
	if a.cfg.Store.Driver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory account store, accounts are lost on restart")
		return memory.NewAccountRepository(), nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if a.cfg.Store.AutoMigrate {
		if err := database.Migrate(ctx, pool, a.logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	return postgresrepo.NewRepositories(pool).Accounts, nil
}

// initNotifier queues mail through asynq when Redis is configured and sends inline otherwise.
func (a *Application) initNotifier(ctx context.Context) (port.Notifier, error) {
	if !a.cfg.RedisEnabled() {
		a.logger.Info("redis not configured, sending verification email inline")
		return mail.NewDirectNotifier(mail.NewSMTPSender(a.cfg.Mail, a.logger)), nil
	}

	client, err := redisinfra.NewClient(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.redis = client

	a.queue = mail.NewQueueNotifier(mail.RedisConnOpt(a.cfg.Redis), a.cfg.Worker.MaxRetry, a.logger)
	a.logger.Info("verification email queue enabled", zap.String("queue", mail.QueueMail))
	return a.queue, nil
}

func (a *Application) initEvents() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

// signingSecret returns the configured secret. Development runs without one get a
// random per-process secret, so tokens do not survive a restart.
func signingSecret(cfg *config.AppConfig, log *zap.Logger) ([]byte, error) {
	if cfg.JWT.Secret != "" {
		return []byte(cfg.JWT.Secret), nil
	}
	if !cfg.IsDevelopment() {
		return nil, errors.New("jwt.secret is required outside development")
	}

	secret, err := security.GenerateSecureToken(devSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate development secret: %w", err)
	}
	log.Warn("jwt.secret not set, using an ephemeral development secret")
	return []byte(secret), nil
}

// Handler exposes the configured HTTP engine.
func (a *Application) Handler() http.Handler {
	return a.engine
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Driver),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown server: %w", err)
	}
	a.release(shutdownCtx)

	return runErr
}

// release waits for pending email dispatches, then closes clients in reverse order of creation.
func (a *Application) release(ctx context.Context) {
	if a.identity != nil {
		a.identity.Drain()
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.logger.Warn("close mail queue client", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
}
