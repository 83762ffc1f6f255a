package health

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ok(ctx context.Context) error   { return nil }
func down(ctx context.Context) error { return errors.New("connection refused") }

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]Checker
		wantReady  bool
		wantStatus Status
	}{
		{
			name:       "no dependencies",
			wantReady:  true,
			wantStatus: StatusHealthy,
		},
		{
			name: "all healthy",
			checkers: map[string]Checker{
				"cache":    PingChecker("cache", false, ok),
				"database": PingChecker("database", false, ok),
			},
			wantReady:  true,
			wantStatus: StatusHealthy,
		},
		{
			name: "optional dependency down",
			checkers: map[string]Checker{
				"cache": PingChecker("cache", false, ok),
				"nats":  PingChecker("nats", true, down),
			},
			wantReady:  true,
			wantStatus: StatusDegraded,
		},
		{
			name: "required dependency down",
			checkers: map[string]Checker{
				"nats":     PingChecker("nats", true, down),
				"database": PingChecker("database", false, down),
			},
			wantReady:  false,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService("test", zap.NewNop())
			for name, c := range tt.checkers {
				s.RegisterChecker(name, c)
			}

			resp := s.Ready(context.Background())

			if resp.Ready != tt.wantReady || resp.Status != tt.wantStatus {
				t.Errorf("got ready=%v status=%s, want ready=%v status=%s", resp.Ready, resp.Status, tt.wantReady, tt.wantStatus)
			}
			if len(resp.Checks) != len(tt.checkers) {
				t.Errorf("expected %d checks, got %d", len(tt.checkers), len(resp.Checks))
			}
		})
	}
}

func TestFiberHandler_Ready(t *testing.T) {
	s := NewService("1.0.0", zap.NewNop())
	s.RegisterChecker("database", PingChecker("database", false, down))
	app := fiber.New()
	NewFiberHandler(s).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/readyz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
