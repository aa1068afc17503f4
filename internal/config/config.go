package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"kinship.dev/internal/identity"
)

// Config is the environment surface consumed by cmd/api.
type Config struct {
	Addr  string
	PGDSN string

	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration

	SendGridKey string
	MailFrom    string

	LogLevel string

	SessionCleanupEvery time.Duration
}

// FromEnv loads configuration from KINSHIP_* environment variables. Token
// TTLs use the <integer><unit> grammar (s, m, h, d) and fall back to their
// defaults on unrecognized input.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:                getenv("KINSHIP_ADDR", ":8080"),
		PGDSN:               os.Getenv("KINSHIP_PG_DSN"),
		AccessSecret:        os.Getenv("KINSHIP_ACCESS_SECRET"),
		RefreshSecret:       os.Getenv("KINSHIP_REFRESH_SECRET"),
		SendGridKey:         os.Getenv("KINSHIP_SENDGRID_KEY"),
		MailFrom:            os.Getenv("KINSHIP_MAIL_FROM"),
		LogLevel:            getenv("KINSHIP_LOG_LEVEL", "info"),
		SessionCleanupEvery: 24 * time.Hour,
	}
	cfg.AccessTTL = identity.ParseTTL(os.Getenv("KINSHIP_ACCESS_TTL"), identity.DefaultAccessTTL)
	cfg.RefreshTTL = identity.ParseTTL(os.Getenv("KINSHIP_REFRESH_TTL"), identity.DefaultRefreshTTL)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AccessSecret) == "" {
		return errors.New("config: KINSHIP_ACCESS_SECRET is required")
	}
	if strings.TrimSpace(c.RefreshSecret) == "" {
		return errors.New("config: KINSHIP_REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if strings.TrimSpace(c.PGDSN) == "" {
		return errors.New("config: KINSHIP_PG_DSN is required")
	}
	if c.SendGridKey != "" && strings.TrimSpace(c.MailFrom) == "" {
		return fmt.Errorf("config: KINSHIP_MAIL_FROM is required when KINSHIP_SENDGRID_KEY is set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
