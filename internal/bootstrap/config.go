package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MuriloKakazu/salesforcedx-apex/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConnectionConfig checks that the configuration can reach a push
// transport and an authoritative query backend.
func ValidateConnectionConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("connection config is required")
	}

	if cfg.IsDev {
		if cfg.Redis.Addr == "" {
			return errors.New("dev mode requires REDIS_ADDR")
		}
		return nil
	}

	switch {
	case cfg.Connection.InstanceURL == "":
		return errors.New("SF_INSTANCE_URL is required")
	case cfg.Connection.ClientID == "":
		return errors.New("SF_CLIENT_ID is required")
	case cfg.Connection.RefreshToken == "":
		return errors.New("SF_REFRESH_TOKEN is required")
	}
	return nil
}
