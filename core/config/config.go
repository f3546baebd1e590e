// Package config holds the configuration every bot built on core shares:
// Telegram access, webhook, logging and rate limiting. Values come from a
// YAML file overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Run modes for receiving updates.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted in rate_limit.exclude_updates.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

// TelegramConfig holds bot credentials and transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"ADMIN_ID"`
	// AdminIDFallback is TELEGRAM_ADMIN_ID, used when admin_id is unset.
	AdminIDFallback int64 `yaml:"-" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates timeout; 0 selects the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// RequestTimeoutSeconds bounds one API call including media uploads; 0 selects the default.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" envconfig:"TELEGRAM_REQUEST_TIMEOUT_SECONDS"`
}

// WebhookConfig is required in webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma separated key list printed first; "default" keeps the built-in order.
	KeysOrder string `yaml:"keys_order"`
	// DebugSample is "n/d" or "d" (1/d) for high-volume debug lines.
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile "debug" or "dev" switches the default format to key=value.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig enforces a minimum interval between updates of one user.
// ExcludeUpdates names kinds that bypass it: "callback" (format buttons) or
// "message" (links and commands).
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the core sections.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load decodes and normalizes a core-only configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path, then applies environment
// overrides. A missing file leaves dst to the environment alone.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	for _, step := range []func() error{cfg.Telegram.normalize, cfg.checkTransport, cfg.RateLimit.normalize} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramConfig) normalize() error {
	if t.AdminID == 0 {
		t.AdminID = t.AdminIDFallback
	}
	switch {
	case t.Token == "":
		return errors.New("telegram token is required")
	case t.AdminID <= 0:
		return errors.New("telegram.admin_id is required")
	case t.LongPollTimeoutSeconds < 0:
		return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
	case t.RequestTimeoutSeconds < 0:
		return errors.New("telegram.request_timeout_seconds must be >= 0")
	}
	mode := strings.ToLower(strings.TrimSpace(t.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = RunModeWebhook
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode)
	}
	return nil
}

func (c *Config) checkTransport() error {
	if c.Telegram.RunMode != RunModeWebhook {
		return nil
	}
	switch {
	case strings.TrimSpace(c.Webhook.URL) == "":
		return errors.New("webhook.url is required when telegram.run_mode is 'webhook'")
	case strings.TrimSpace(c.Webhook.Listen) == "":
		return errors.New("webhook.listen is required when telegram.run_mode is 'webhook'")
	case c.Webhook.Port <= 0:
		return errors.New("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
	}
	return nil
}

func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	kinds := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "":
			continue
		case UpdateCallback, UpdateMessage:
			kinds = append(kinds, kind)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	r.ExcludeUpdates = kinds
	return nil
}
