package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/devmike09/Converter-Bot/internal/consts"
)

type Config struct {
	TelegramBotToken string
	RequiredChannel  string
	StorageDir       string
	TranscoderBin    string
	FileTTL          time.Duration
	LogLevel         string

	// Metrics configuration
	MetricsAddr string // Listen address for /metrics and /health (e.g. ":9090")
}

func Load() (*Config, error) {
	// A .env file is a development convenience; in production everything
	// arrives through real environment variables.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	fileTTL, err := getDurationOrDefault("FILE_TTL", consts.DefaultFileTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RequiredChannel:  os.Getenv("REQUIRED_CHANNEL"),
		StorageDir:       getEnvOrDefault("STORAGE_DIR", consts.DefaultStorageDir),
		TranscoderBin:    getEnvOrDefault("TRANSCODER_PATH", consts.DefaultTranscoderBin),
		FileTTL:          fileTTL,
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"TELEGRAM_BOT_TOKEN": c.TelegramBotToken,
	}

	for key, value := range required {
		if value == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	if c.FileTTL <= 0 {
		return fmt.Errorf("FILE_TTL must be a positive duration, got %s", c.FileTTL)
	}

	return nil
}

// HasRequiredChannel reports whether a membership gate is configured.
func (c *Config) HasRequiredChannel() bool {
	return c.RequiredChannel != ""
}

// HasMetricsConfig reports whether the metrics endpoint should be served.
func (c *Config) HasMetricsConfig() bool {
	return c.MetricsAddr != ""
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration in %s: %w", key, err)
	}
	return d, nil
}
