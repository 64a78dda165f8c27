package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Detector DetectorConfig `mapstructure:"detector"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScraperConfig holds market site fetching configuration
type ScraperConfig struct {
	HomeURL           string        `mapstructure:"home_url"`
	MarketURLTemplate string        `mapstructure:"market_url_template"`
	UserAgent         string        `mapstructure:"user_agent"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
}

// DetectorConfig holds alert detection thresholds and cooldowns
type DetectorConfig struct {
	OddsChangeThresholdPP float64       `mapstructure:"odds_change_threshold_pp"`
	OddsCooldown          time.Duration `mapstructure:"odds_cooldown"`
	ClosingWindowsHours   []int         `mapstructure:"closing_windows_hours"`
	ClosingDedupTTL       time.Duration `mapstructure:"closing_dedup_ttl"`
	ErrorCooldown         time.Duration `mapstructure:"error_cooldown"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxPerCycle    int           `mapstructure:"max_per_cycle"`
	SendDelay      time.Duration `mapstructure:"send_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// RedisConfig holds the state store connection configuration
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// HistoryConfig holds the SQLite alert archive configuration
type HistoryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DBPath    string `mapstructure:"db_path"`
	MaxAlerts int    `mapstructure:"max_alerts"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("TRENDWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Scraper defaults
	v.SetDefault("scraper.home_url", "https://www.trendzbr.com/")
	v.SetDefault("scraper.market_url_template", "https://www.trendzbr.com/market/%d?question=%s")
	v.SetDefault("scraper.user_agent", "TrendWatch-AlertBot/1.0")
	v.SetDefault("scraper.poll_interval", "5m")
	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_delay_base", "1s")

	// Detector defaults
	v.SetDefault("detector.odds_change_threshold_pp", 10.0)
	v.SetDefault("detector.odds_cooldown", "30m")
	v.SetDefault("detector.closing_windows_hours", []int{24, 6, 1})
	v.SetDefault("detector.closing_dedup_ttl", "24h")
	v.SetDefault("detector.error_cooldown", "10m")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_per_cycle", 20)
	v.SetDefault("telegram.send_delay", "1s")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "trendwatch")

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "./data/alerts.db")
	v.SetDefault("history.max_alerts", 5000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Scraper config
	if c.Scraper.HomeURL == "" {
		return fmt.Errorf("scraper.home_url is required")
	}
	if c.Scraper.MarketURLTemplate == "" {
		return fmt.Errorf("scraper.market_url_template is required")
	}
	if c.Scraper.PollInterval < 1*time.Minute {
		return fmt.Errorf("scraper.poll_interval must be at least 1 minute")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be positive")
	}
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("scraper.max_retries must be at least 1")
	}

	// Validate Detector config
	if c.Detector.OddsChangeThresholdPP <= 0 || c.Detector.OddsChangeThresholdPP > 100 {
		return fmt.Errorf("detector.odds_change_threshold_pp must be between 0 and 100")
	}
	if c.Detector.OddsCooldown < 1*time.Minute {
		return fmt.Errorf("detector.odds_cooldown must be at least 1 minute")
	}
	if len(c.Detector.ClosingWindowsHours) == 0 {
		return fmt.Errorf("detector.closing_windows_hours must contain at least one window")
	}
	for _, w := range c.Detector.ClosingWindowsHours {
		if w < 1 {
			return fmt.Errorf("detector.closing_windows_hours entries must be at least 1 hour")
		}
		if c.Detector.ClosingDedupTTL < time.Duration(w)*time.Hour {
			return fmt.Errorf("detector.closing_dedup_ttl must be at least as long as every closing window")
		}
	}
	if c.Detector.ErrorCooldown < 1*time.Minute {
		return fmt.Errorf("detector.error_cooldown must be at least 1 minute")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.MaxPerCycle < 1 {
		return fmt.Errorf("telegram.max_per_cycle must be at least 1")
	}
	if c.Telegram.SendDelay < 0 {
		return fmt.Errorf("telegram.send_delay must not be negative")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Redis.KeyPrefix == "" {
		return fmt.Errorf("redis.key_prefix is required")
	}

	// Validate History config
	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path is required when history is enabled")
		}
		if c.History.MaxAlerts < 1 {
			return fmt.Errorf("history.max_alerts must be at least 1")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
