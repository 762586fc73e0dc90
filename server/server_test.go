package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/component"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.MaxBodySize != "64MB" || len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	bad := cfg
	bad.Port = 70000
	if err := bad.Validate(); err == nil {
		t.Fatal("expected port error")
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFound("session", "s1"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped", fmt.Errorf("op: %w", apperrors.Conflict("done")), http.StatusConflict, "CONFLICT"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d", rr.Code)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if string(body.Error.Code) != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		status     component.HealthStatus
		wantStatus int
	}{
		{"healthy", component.StatusHealthy, http.StatusOK},
		{"degraded", component.StatusDegraded, http.StatusOK},
		{"unhealthy", component.StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Port: 0}, logger.Nop())
			s.ApplyMiddleware(nil)
			s.RegisterHealthEndpoints("scribe", "test", func(context.Context) []component.Health {
				return []component.Health{{Name: "sessions", Status: tt.status}}
			})

			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != string(tt.status) {
				t.Errorf("body status = %v", body["status"])
			}
		})
	}

	s := New(Config{}, logger.Nop())
	s.RegisterHealthEndpoints("scribe", "test", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/alive", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("alive status = %d", rr.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	s := New(cfg, logger.Nop())
	s.RegisterHealthEndpoints("scribe", "test", nil)
	c := NewComponent(s)

	ctx := context.Background()
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Fatalf("before start: %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/alive")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Fatalf("after start: %s", h.Status)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}
