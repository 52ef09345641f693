package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IAM_APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.JWT.Algorithm != "HS256" {
		t.Fatalf("expected HS256, got %s", cfg.JWT.Algorithm)
	}
	if cfg.JWT.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("expected postgres driver, got %s", cfg.Store.Driver)
	}
	if cfg.Mail.SMTPHost != "smtp.gmail.com" || cfg.Mail.SMTPPort != 587 {
		t.Fatalf("unexpected smtp defaults: %s:%d", cfg.Mail.SMTPHost, cfg.Mail.SMTPPort)
	}
	if len(cfg.CORS.AllowedOrigins) != 3 {
		t.Fatalf("expected 3 default origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development environment")
	}
}

func TestLoadLegacyAliases(t *testing.T) {
	t.Setenv("IAM_APP_ENV", "production")
	t.Setenv("SECRET_KEY", "legacy-secret")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.JWT.Secret != "legacy-secret" {
		t.Fatalf("expected SECRET_KEY alias to populate jwt.secret, got %q", cfg.JWT.Secret)
	}
	if cfg.Mail.SMTPUser != "mailer@example.com" {
		t.Fatalf("expected SMTP_USER alias, got %q", cfg.Mail.SMTPUser)
	}
	if cfg.Mail.SMTPPort != 2525 {
		t.Fatalf("expected SMTP_PORT alias, got %d", cfg.Mail.SMTPPort)
	}
}

func TestLoadPrefixedOverrides(t *testing.T) {
	t.Setenv("IAM_APP_ENV", "development")
	t.Setenv("IAM_STORE_DRIVER", "memory")
	t.Setenv("IAM_JWT_ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Driver != StoreDriverMemory {
		t.Fatalf("expected memory driver, got %s", cfg.Store.Driver)
	}
	if cfg.JWT.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", cfg.JWT.AccessTokenTTL)
	}
}

func TestValidate(t *testing.T) {
	base := AppConfig{
		App:   AppSettings{Env: "production"},
		Store: StoreSettings{Driver: StoreDriverMemory},
		JWT:   JWTSettings{Secret: "s", AccessTokenTTL: time.Minute},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	noSecret := base
	noSecret.JWT.Secret = ""
	if err := noSecret.Validate(); err == nil {
		t.Fatal("expected missing secret to be rejected in production")
	}

	badDriver := base
	badDriver.Store.Driver = "sqlite"
	if err := badDriver.Validate(); err == nil {
		t.Fatal("expected unknown store driver to be rejected")
	}

	badTTL := base
	badTTL.JWT.AccessTokenTTL = 0
	if err := badTTL.Validate(); err == nil {
		t.Fatal("expected non-positive ttl to be rejected")
	}
}

func TestLoadRedisIsOptIn(t *testing.T) {
	t.Setenv("IAM_APP_ENV", "development")
	t.Setenv("IAM_REDIS_HOST", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RedisEnabled() {
		t.Fatalf("expected redis to be disabled by default, got host %q", cfg.Redis.Host)
	}

	t.Setenv("IAM_REDIS_HOST", "cache")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.RedisEnabled() {
		t.Fatal("expected IAM_REDIS_HOST to enable redis")
	}
	if cfg.RedisAddr() != "cache:6379" {
		t.Fatalf("unexpected redis address %q", cfg.RedisAddr())
	}
}
