package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/infra/config"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		App:   config.AppSettings{Name: "hostel-identity", Env: "development", PublicURL: "http://localhost:8000"},
		Store: config.StoreSettings{Driver: config.StoreDriverMemory},
		JWT:   config.JWTSettings{Algorithm: "HS256", AccessTokenTTL: 30 * time.Minute, Issuer: "hostel-identity"},
		Argon2: config.Argon2Settings{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		CORS: config.CORSSettings{AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

func TestNewWiresMemoryStore(t *testing.T) {
	application, err := New(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { application.release(context.Background()) })

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"a@x.com","username":"a","password":"Pw1!"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	application.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	application.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected readiness without external stores, got %d", rr.Code)
	}
}

func TestNewFromLoadedConfigSendsMailInline(t *testing.T) {
	t.Setenv("IAM_APP_ENV", "development")
	t.Setenv("IAM_STORE_DRIVER", config.StoreDriverMemory)
	t.Setenv("IAM_REDIS_HOST", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("IAM_KAFKA_BROKERS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	application, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New returned error without redis: %v", err)
	}
	t.Cleanup(func() { application.release(context.Background()) })

	if application.redis != nil || application.queue != nil {
		t.Fatal("expected no redis client or mail queue when redis.host is unset")
	}
}

func TestSigningSecret(t *testing.T) {
	cfg := memoryConfig()

	secret, err := signingSecret(cfg, zapNop())
	if err != nil || len(secret) == 0 {
		t.Fatalf("expected ephemeral development secret, got %q, %v", secret, err)
	}

	cfg.JWT.Secret = "configured"
	secret, err = signingSecret(cfg, zapNop())
	if err != nil || string(secret) != "configured" {
		t.Fatalf("expected configured secret, got %q, %v", secret, err)
	}

	cfg.JWT.Secret = ""
	cfg.App.Env = "production"
	if _, err := signingSecret(cfg, zapNop()); err == nil {
		t.Fatalf("expected missing secret to fail outside development")
	}
}

func TestNewRejectsInvalidArgon2(t *testing.T) {
	cfg := memoryConfig()
	cfg.Argon2.Memory = 1024

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected invalid argon2 parameters to fail")
	}
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
