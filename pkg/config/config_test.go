package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "LOG_FORMAT", "EXCHANGE_TIMEOUT", "REQUEST_TIMEOUT", "DISPATCH_CONCURRENCY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "ACCOUNTS_FILE", "ALERT_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8003" || cfg.ServiceName != "signal-gateway" {
		t.Errorf("port=%s service=%s", cfg.Port, cfg.ServiceName)
	}
	if cfg.ExchangeTimeout != 10*time.Second || cfg.RequestTimeout != 30*time.Second || cfg.AlertTimeout != 5*time.Second {
		t.Errorf("timeouts = %s / %s / %s", cfg.ExchangeTimeout, cfg.RequestTimeout, cfg.AlertTimeout)
	}
	if cfg.DispatchConcurrency != 4 || cfg.LogFormat != "json" {
		t.Errorf("concurrency=%d format=%s", cfg.DispatchConcurrency, cfg.LogFormat)
	}
	if cfg.TelegramEnabled() {
		t.Errorf("telegram should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EXCHANGE_TIMEOUT", "5")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("LOG_FORMAT", "CONSOLE")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.ExchangeTimeout != 5*time.Second || cfg.RequestTimeout != 45*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("log format = %s", cfg.LogFormat)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramChatID != -1001234 {
		t.Errorf("telegram chat = %d", cfg.TelegramChatID)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Port: "8003", LogFormat: "json", ExchangeTimeout: 10 * time.Second, RequestTimeout: 30 * time.Second, DispatchConcurrency: 1}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"request shorter", func(c *Config) { c.RequestTimeout = time.Second }, "REQUEST_TIMEOUT"},
		{"concurrency", func(c *Config) { c.DispatchConcurrency = 0 }, "DISPATCH_CONCURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
