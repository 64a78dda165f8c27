package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "telegram:\n  enabled: false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scraper.PollInterval != 5*time.Minute {
		t.Errorf("poll_interval = %v, want 5m", cfg.Scraper.PollInterval)
	}
	if cfg.Detector.OddsChangeThresholdPP != 10.0 {
		t.Errorf("odds threshold = %v, want 10.0", cfg.Detector.OddsChangeThresholdPP)
	}
	if cfg.Detector.OddsCooldown != 30*time.Minute {
		t.Errorf("odds cooldown = %v, want 30m", cfg.Detector.OddsCooldown)
	}
	if len(cfg.Detector.ClosingWindowsHours) != 3 {
		t.Errorf("closing windows = %v, want [24 6 1]", cfg.Detector.ClosingWindowsHours)
	}
	if cfg.Telegram.MaxPerCycle != 20 {
		t.Errorf("max_per_cycle = %d, want 20", cfg.Telegram.MaxPerCycle)
	}
	if cfg.Redis.KeyPrefix != "trendwatch" {
		t.Errorf("key_prefix = %q, want trendwatch", cfg.Redis.KeyPrefix)
	}
	if !cfg.History.Enabled || cfg.History.MaxAlerts != 5000 {
		t.Errorf("unexpected history defaults: %+v", cfg.History)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
scraper:
  home_url: "https://staging.trendzbr.com/"
  poll_interval: 2m
detector:
  odds_change_threshold_pp: 5.0
  closing_windows_hours: [48, 12]
  closing_dedup_ttl: 48h
telegram:
  enabled: true
  bot_token: "token"
  chat_id: "-100123"
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scraper.HomeURL != "https://staging.trendzbr.com/" {
		t.Errorf("home_url = %q", cfg.Scraper.HomeURL)
	}
	if cfg.Scraper.PollInterval != 2*time.Minute {
		t.Errorf("poll_interval = %v, want 2m", cfg.Scraper.PollInterval)
	}
	if cfg.Detector.OddsChangeThresholdPP != 5.0 {
		t.Errorf("odds threshold = %v, want 5.0", cfg.Detector.OddsChangeThresholdPP)
	}
	if len(cfg.Detector.ClosingWindowsHours) != 2 || cfg.Detector.ClosingWindowsHours[0] != 48 {
		t.Errorf("closing windows = %v, want [48 12]", cfg.Detector.ClosingWindowsHours)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken != "token" {
		t.Errorf("unexpected telegram config: %+v", cfg.Telegram)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		path := writeConfig(t, "telegram:\n  enabled: false\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"poll interval too short", func(c *Config) { c.Scraper.PollInterval = 30 * time.Second }},
		{"threshold zero", func(c *Config) { c.Detector.OddsChangeThresholdPP = 0 }},
		{"threshold over 100", func(c *Config) { c.Detector.OddsChangeThresholdPP = 150 }},
		{"no closing windows", func(c *Config) { c.Detector.ClosingWindowsHours = nil }},
		{"dedup ttl shorter than window", func(c *Config) { c.Detector.ClosingDedupTTL = time.Hour }},
		{"telegram enabled without token", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "-100123"
		}},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
