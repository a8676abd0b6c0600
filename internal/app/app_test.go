package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"serotonyl.ru/loyalty-backend/internal/config"
	"serotonyl.ru/loyalty-backend/internal/security"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := security.HashPassword("boss-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &config.Config{
		AppEnv:                "development",
		AppStorage:            config.StorageMemory,
		AppTimezone:           "Europe/Moscow",
		HTTPAddr:              ":0",
		JWTSecret:             "user-secret",
		JWTTTL:                time.Hour,
		AdminJWTSecret:        "admin-secret",
		AdminJWTTTL:           time.Hour,
		AdminEmail:            "boss@example.com",
		AdminPasswordHash:     hash,
		SpinFreeCooldownHours: 6,
		ConfigRefreshInterval: time.Minute,
		ReconcileSchedule:     "0 4 * * *",
		RateLimitRequests:     100,
		RateLimitWindow:       time.Minute,
	}
}

func TestNewWithMemoryStorage(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.DB != nil {
		t.Fatalf("memory storage must not open a pool")
	}
	if got := a.Config.Spin(context.Background()).FreeCooldownHours; got != 6 {
		t.Fatalf("free cooldown = %v, want override 6", got)
	}

	rec := httptest.NewRecorder()
	a.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestNewRejectsMissingDefaultsFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.GameDefaultsFile = "/nonexistent/defaults.yaml"
	if a, err := New(context.Background(), cfg); err == nil {
		a.Close()
		t.Fatalf("New succeeded with a missing defaults file")
	}
}

func TestMigrationsAreOrdered(t *testing.T) {
	t.Parallel()
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Fatalf("migration %q has version %d, want %d", m.Name, m.Version, i+1)
		}
		if m.SQL == "" {
			t.Fatalf("migration %d is empty", m.Version)
		}
	}
}
