package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newHealthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/healthz", h.Status)
	router.GET("/readyz", h.Readiness)
	return router
}

func TestRootWelcomeMessage(t *testing.T) {
	router := newHealthRouter(NewHealthHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var msg MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if rr.Code != http.StatusOK || msg.Message != "Welcome to Hostel Comparison API" {
		t.Fatalf("unexpected root response %d %+v", rr.Code, msg)
	}
}

func TestHealthStatus(t *testing.T) {
	router := newHealthRouter(NewHealthHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if rr.Code != http.StatusOK || body.Status != "ok" || body.StartedAt.IsZero() {
		t.Fatalf("unexpected health response %d %+v", rr.Code, body)
	}
}

func TestReadiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("dial tcp: refused") }

	cases := []struct {
		name       string
		opts       []HealthOption
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name:       "all healthy",
			opts:       []HealthOption{WithReadinessCheck("postgres", healthy), WithReadinessCheck("redis", healthy)},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:       "one failing",
			opts:       []HealthOption{WithReadinessCheck("postgres", healthy), WithReadinessCheck("redis", failing)},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"postgres": "ok", "redis": "unavailable"},
		},
		{
			name:       "ignores nil check",
			opts:       []HealthOption{WithReadinessCheck("redis", nil), nil},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newHealthRouter(NewHealthHandler(tc.opts...))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			var body ReadinessResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(body.Checks) != len(tc.wantChecks) {
				t.Fatalf("expected checks %v, got %v", tc.wantChecks, body.Checks)
			}
			for name, want := range tc.wantChecks {
				if body.Checks[name] != want {
					t.Fatalf("check %s: expected %q, got %q", name, want, body.Checks[name])
				}
			}
		})
	}
}
