package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal gateway.
type Config struct {
	Port        string
	ServiceName string

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json or console

	// Accounts registry; empty means the built-in registry
	AccountsFile string
	// Prefix of the master key variables used to unseal ENC[vN]: credentials
	MasterKeyPrefix string

	// Exchange
	ExchangeTimeout time.Duration
	BingXBaseURL    string // optional host override for every mode

	// Pipeline
	DispatchConcurrency int
	RequestTimeout      time.Duration

	// Alerts
	TelegramBotToken string
	TelegramChatID   int64
	AlertTimeout     time.Duration
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8003"),
		ServiceName:         getEnv("SERVICE_NAME", "signal-gateway"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "json")),
		AccountsFile:        os.Getenv("ACCOUNTS_FILE"),
		MasterKeyPrefix:     getEnv("MASTER_KEY_PREFIX", "CREDENTIALS_MASTER_KEY"),
		ExchangeTimeout:     getEnvDuration("EXCHANGE_TIMEOUT", 10*time.Second),
		BingXBaseURL:        os.Getenv("BINGX_BASE_URL"),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 4),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      getEnvInt64("TELEGRAM_CHAT_ID", 0),
		AlertTimeout:        getEnvDuration("ALERT_TIMEOUT", 5*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.ExchangeTimeout <= 0 {
		return fmt.Errorf("EXCHANGE_TIMEOUT must be positive")
	}
	if c.RequestTimeout < c.ExchangeTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than EXCHANGE_TIMEOUT (%s)", c.RequestTimeout, c.ExchangeTimeout)
	}
	if c.DispatchConcurrency < 1 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be >= 1")
	}
	return nil
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(s * float64(time.Second))
	}
	return def
}
