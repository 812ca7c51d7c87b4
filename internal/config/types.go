package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Market    MarketConfig    `json:"market"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// MarketConfig points at the ranking data provider (CoinMarketCap-compatible).
type MarketConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key"`
	Timeout string `json:"timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the hourly fan-out.
//
// DefaultHours seeds the notification schedule for new recipients.
// Empty means every hour (0..23).
type SchedulerConfig struct {
	Enabled            bool   `json:"enabled"`
	Timezone           string `json:"timezone,omitempty"` // e.g. "Local", "UTC", "Europe/Moscow"
	RatePerSec         int    `json:"rate_per_sec,omitempty"`
	DefaultResultCount int    `json:"default_result_count,omitempty"`
	DefaultHours       []int  `json:"default_hours,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder can't.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if strings.TrimSpace(c.Market.APIKey) == "" {
		return fmt.Errorf("market.api_key is required")
	}
	if n := c.Scheduler.DefaultResultCount; n != 0 && (n < 1 || n > 100) {
		return fmt.Errorf("scheduler.default_result_count must be in [1,100], got %d", n)
	}
	for _, h := range c.Scheduler.DefaultHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("scheduler.default_hours: hour %d out of range [0,23]", h)
		}
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" && tz != "Local" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"market.timeout", c.Market.Timeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}
