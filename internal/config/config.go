// Package config loads the daemon configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
)

// Config is the full configuration surface of the sync daemon.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	// WordPress REST credentials.
	WPBaseURL     string
	WPUsername    string
	WPAppPassword string

	// Engine settings.
	EnabledTypes []domain.ItemType
	SyncInterval time.Duration
	PageSize     int
	AutoStart    bool

	JWTSecret string
	DevMode   bool
}

// Load reads configuration from the environment. A .env file is honored
// for local development when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	cfg := Config{
		Env:           getEnv("ENV", "dev"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8082"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		WPBaseURL:     strings.TrimRight(getEnv("WP_BASE_URL", ""), "/"),
		WPUsername:    getEnv("WP_USERNAME", ""),
		WPAppPassword: getEnv("WP_APP_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_HS256_SECRET", "dev-secret-change-in-production"),
		PageSize:      getEnvInt("SYNC_PAGE_SIZE", 100),
		AutoStart:     getEnvBool("SYNC_AUTO_START", true),
	}
	cfg.DevMode = cfg.Env == "dev"

	minutes := getEnvInt("SYNC_INTERVAL_MINUTES", 15)
	if minutes <= 0 {
		minutes = 15
	}
	cfg.SyncInterval = time.Duration(minutes) * time.Minute

	types, err := parseTypes(getEnv("SYNC_TYPES", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.EnabledTypes = types

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WPBaseURL == "" {
		return Config{}, fmt.Errorf("WP_BASE_URL is required")
	}
	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-in-production" {
		return Config{}, fmt.Errorf("JWT_HS256_SECRET must be set in production")
	}

	return cfg, nil
}

// parseTypes parses a comma-separated type list. Empty enables every type.
func parseTypes(s string) ([]domain.ItemType, error) {
	if strings.TrimSpace(s) == "" {
		return domain.AllTypes, nil
	}
	var out []domain.ItemType
	for _, part := range strings.Split(s, ",") {
		t := domain.ItemType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("SYNC_TYPES: unknown type %q", t)
		}
		out = append(out, t)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env value, using default")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean env value, using default")
	}
	return fallback
}
