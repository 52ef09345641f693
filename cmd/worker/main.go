package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/logger"
	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/mail"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.RedisEnabled() {
		log.Fatalf("mail worker requires redis.host to be configured")
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zlog.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sender := mail.NewSMTPSender(cfg.Mail, zlog)
	worker := mail.NewWorker(mail.RedisConnOpt(cfg.Redis), cfg.Worker, sender, zlog)

	zlog.Info("starting mail worker",
		zap.String("redis", cfg.RedisAddr()),
		zap.Int("concurrency", cfg.Worker.Concurrency),
	)

	if err := worker.Run(ctx); err != nil {
		zlog.Error("mail worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
