package config

import (
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("KINSHIP_PG_DSN", "postgres://localhost/kinship")
	t.Setenv("KINSHIP_ACCESS_SECRET", "access-secret")
	t.Setenv("KINSHIP_REFRESH_SECRET", "refresh-secret")
	t.Setenv("KINSHIP_ACCESS_TTL", "30m")
	t.Setenv("KINSHIP_REFRESH_TTL", "14d")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.AccessTTL != 30*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.RefreshTTL)
	}
}

func TestFromEnvTTLFallback(t *testing.T) {
	t.Setenv("KINSHIP_PG_DSN", "postgres://localhost/kinship")
	t.Setenv("KINSHIP_ACCESS_SECRET", "access-secret")
	t.Setenv("KINSHIP_REFRESH_SECRET", "refresh-secret")
	t.Setenv("KINSHIP_ACCESS_TTL", "soon")
	t.Setenv("KINSHIP_REFRESH_TTL", "1w")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("expected access default, got %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected refresh default, got %v", cfg.RefreshTTL)
	}
}

func TestFromEnvValidation(t *testing.T) {
	t.Setenv("KINSHIP_PG_DSN", "postgres://localhost/kinship")
	t.Setenv("KINSHIP_ACCESS_SECRET", "same")
	t.Setenv("KINSHIP_REFRESH_SECRET", "same")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}
