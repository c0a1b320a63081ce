package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.Currency != "INR" {
		t.Errorf("currency: got %q, want INR", cfg.Currency)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("store backend: got %q, want memory", cfg.StoreBackend)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Errorf("backend timeout: got %v, want 10s", cfg.BackendTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("STORE_BACKEND", "redis")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("port: got %q, want 9000", cfg.Port)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("backend timeout: got %v, want 3s", cfg.BackendTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
	if cfg.StoreBackend != "redis" {
		t.Errorf("store backend: got %q, want redis", cfg.StoreBackend)
	}
}

func TestLoadIgnoresBadDuration(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")

	if got := Load().BackendTimeout; got != 10*time.Second {
		t.Errorf("backend timeout: got %v, want fallback 10s", got)
	}
}
