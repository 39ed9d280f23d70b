package config

import (
	"strings"
	"testing"
	"time"

	"github.com/devmike09/Converter-Bot/internal/consts"
)

func TestHasRequiredChannel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "channel username configured",
			config: &Config{
				RequiredChannel: "@converterhub",
			},
			expected: true,
		},
		{
			name: "numeric channel id configured",
			config: &Config{
				RequiredChannel: "-1001234567890",
			},
			expected: true,
		},
		{
			name:     "no channel configured",
			config:   &Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.HasRequiredChannel()
			if result != tt.expected {
				t.Errorf("HasRequiredChannel() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestHasMetricsConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "metrics address configured",
			config: &Config{
				MetricsAddr: ":9090",
			},
			expected: true,
		},
		{
			name:     "metrics disabled",
			config:   &Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.HasMetricsConfig()
			if result != tt.expected {
				t.Errorf("HasMetricsConfig() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		config        *Config
		expectError   bool
		errorContains string
	}{
		{
			name: "valid config",
			config: &Config{
				TelegramBotToken: "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11",
				FileTTL:          consts.DefaultFileTTL,
			},
			expectError: false,
		},
		{
			name: "missing telegram token",
			config: &Config{
				TelegramBotToken: "",
				FileTTL:          consts.DefaultFileTTL,
			},
			expectError:   true,
			errorContains: "TELEGRAM_BOT_TOKEN",
		},
		{
			name: "non-positive file ttl",
			config: &Config{
				TelegramBotToken: "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11",
				FileTTL:          0,
			},
			expectError:   true,
			errorContains: "FILE_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()

			if tt.expectError {
				if err == nil {
					t.Errorf("validate() expected error but got nil")
					return
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("validate() error = %v, want to contain %s", err, tt.errorContains)
				}
			} else {
				if err != nil {
					t.Errorf("validate() unexpected error = %v", err)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")
		t.Setenv("STORAGE_DIR", "")
		t.Setenv("FILE_TTL", "")
		t.Setenv("TRANSCODER_PATH", "")
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("METRICS_ADDR", "")
		t.Setenv("REQUIRED_CHANNEL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() unexpected error = %v", err)
		}
		if cfg.StorageDir != consts.DefaultStorageDir {
			t.Errorf("StorageDir = %v, want %v", cfg.StorageDir, consts.DefaultStorageDir)
		}
		if cfg.TranscoderBin != consts.DefaultTranscoderBin {
			t.Errorf("TranscoderBin = %v, want %v", cfg.TranscoderBin, consts.DefaultTranscoderBin)
		}
		if cfg.FileTTL != consts.DefaultFileTTL {
			t.Errorf("FileTTL = %v, want %v", cfg.FileTTL, consts.DefaultFileTTL)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
		}
		if cfg.HasRequiredChannel() {
			t.Error("HasRequiredChannel() = true, want false")
		}
	})

	t.Run("custom ttl parsed", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")
		t.Setenv("FILE_TTL", "90m")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() unexpected error = %v", err)
		}
		if cfg.FileTTL != 90*time.Minute {
			t.Errorf("FileTTL = %v, want %v", cfg.FileTTL, 90*time.Minute)
		}
	})

	t.Run("malformed ttl rejected", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")
		t.Setenv("FILE_TTL", "tomorrow")

		if _, err := Load(); err == nil {
			t.Error("Load() expected error for malformed FILE_TTL, got nil")
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("FILE_TTL", "")

		if _, err := Load(); err == nil {
			t.Error("Load() expected error for missing TELEGRAM_BOT_TOKEN, got nil")
		}
	})
}
