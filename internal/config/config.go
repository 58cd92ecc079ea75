// Package config loads the openbot configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jdelaire/openbot/core/auth"
	"github.com/jdelaire/openbot/core/ops"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	DefaultFreshnessSeconds  = 120
	DefaultThrottleLimit     = 20
	DefaultThrottleWindowSec = 60
	DefaultPollTimeoutSec    = 30
	DefaultMaxConcurrency    = 16
	DefaultOpTimeoutSec      = 30
	DefaultMaxConcurrentOps  = 2
	DefaultWebhookAddr       = ":8443"
	DefaultWebhookPath       = "/telegram"
)

// Config is the bot configuration.
type Config struct {
	Token            string         `json:"token" yaml:"token" toml:"token"`
	Mode             string         `json:"mode" yaml:"mode" toml:"mode"`
	LogLevel         string         `json:"log_level" yaml:"log_level" toml:"log_level"`
	AllowedChats     []int64        `json:"allowed_chats" yaml:"allowed_chats" toml:"allowed_chats"`
	FreshnessSeconds int            `json:"freshness_seconds" yaml:"freshness_seconds" toml:"freshness_seconds"`
	TOTPSecret       string         `json:"totp_secret" yaml:"totp_secret" toml:"totp_secret"`
	Commands         []ops.ShellOp  `json:"commands" yaml:"commands" toml:"commands"`
	Throttle         ThrottleConfig `json:"throttle" yaml:"throttle" toml:"throttle"`
	Polling          PollingConfig  `json:"polling" yaml:"polling" toml:"polling"`
	Webhook          WebhookConfig  `json:"webhook" yaml:"webhook" toml:"webhook"`
	Ops              OpsConfig      `json:"ops" yaml:"ops" toml:"ops"`
	Notify           NotifyConfig   `json:"notify" yaml:"notify" toml:"notify"`
}

// ThrottleConfig bounds updates per user. A negative limit disables it.
type ThrottleConfig struct {
	Limit         int `json:"limit" yaml:"limit" toml:"limit"`
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds" toml:"window_seconds"`
}

type PollingConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
}

// WebhookConfig is used in webhook mode. URL is the public address given
// to setWebhook; Addr and Path are where the local server listens.
type WebhookConfig struct {
	URL    string `json:"url" yaml:"url" toml:"url"`
	Addr   string `json:"addr" yaml:"addr" toml:"addr"`
	Path   string `json:"path" yaml:"path" toml:"path"`
	Secret string `json:"secret" yaml:"secret" toml:"secret"`
}

type OpsConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxConcurrent  int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
}

// NotifyConfig enables the local notify socket when Socket is set. Chats
// defaults to AllowedChats.
type NotifyConfig struct {
	Socket string  `json:"socket" yaml:"socket" toml:"socket"`
	Chats  []int64 `json:"chats" yaml:"chats" toml:"chats"`
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "openbot", "config.yaml")
}

// Load reads, decodes, overrides from the environment, validates and
// fills defaults. The format follows the file extension.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}

	applyEnv(&cfg, lookupEnv)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set("OPENBOT_TOKEN", &cfg.Token)
	set("OPENBOT_MODE", &cfg.Mode)
	set("OPENBOT_LOG_LEVEL", &cfg.LogLevel)
	set("OPENBOT_TOTP_SECRET", &cfg.TOTPSecret)
	set("OPENBOT_WEBHOOK_URL", &cfg.Webhook.URL)
	set("OPENBOT_WEBHOOK_ADDR", &cfg.Webhook.Addr)
	set("OPENBOT_WEBHOOK_SECRET", &cfg.Webhook.Secret)
}

func validate(cfg *Config) error {
	switch cfg.Mode {
	case "", ModePolling:
	case ModeWebhook:
		if cfg.Webhook.URL == "" {
			return fmt.Errorf("webhook mode requires webhook.url")
		}
		if !strings.HasPrefix(cfg.Webhook.URL, "https://") {
			return fmt.Errorf("webhook.url must be https")
		}
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	if cfg.LogLevel != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}

	for _, id := range cfg.AllowedChats {
		if id == 0 {
			return fmt.Errorf("allowed_chats contains 0")
		}
	}
	if cfg.FreshnessSeconds < 0 {
		return fmt.Errorf("freshness_seconds must not be negative")
	}

	if cfg.TOTPSecret != "" {
		if _, err := auth.New(cfg.TOTPSecret); err != nil {
			return fmt.Errorf("totp_secret: %w", err)
		}
	}

	seen := make(map[string]bool, len(cfg.Commands))
	for i := range cfg.Commands {
		if err := cfg.Commands[i].Validate(); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
		name := cfg.Commands[i].CmdName
		if seen[name] {
			return fmt.Errorf("duplicate command %q", name)
		}
		seen[name] = true
	}

	if cfg.Throttle.WindowSeconds < 0 {
		return fmt.Errorf("throttle.window_seconds must not be negative")
	}
	if cfg.Webhook.Path != "" && !strings.HasPrefix(cfg.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with /")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModePolling
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.FreshnessSeconds == 0 {
		cfg.FreshnessSeconds = DefaultFreshnessSeconds
	}
	if cfg.Throttle.Limit == 0 {
		cfg.Throttle.Limit = DefaultThrottleLimit
	}
	if cfg.Throttle.WindowSeconds == 0 {
		cfg.Throttle.WindowSeconds = DefaultThrottleWindowSec
	}
	if cfg.Polling.TimeoutSeconds <= 0 {
		cfg.Polling.TimeoutSeconds = DefaultPollTimeoutSec
	}
	if cfg.Polling.MaxConcurrency <= 0 {
		cfg.Polling.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Webhook.Addr == "" {
		cfg.Webhook.Addr = DefaultWebhookAddr
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = DefaultWebhookPath
	}
	if cfg.Ops.TimeoutSeconds <= 0 {
		cfg.Ops.TimeoutSeconds = DefaultOpTimeoutSec
	}
	if cfg.Ops.MaxConcurrent <= 0 {
		cfg.Ops.MaxConcurrent = DefaultMaxConcurrentOps
	}
	if len(cfg.Notify.Chats) == 0 {
		cfg.Notify.Chats = cfg.AllowedChats
	}
}

// Level returns the parsed log level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) Freshness() time.Duration {
	return time.Duration(c.FreshnessSeconds) * time.Second
}

func (c *Config) ThrottleWindow() time.Duration {
	return time.Duration(c.Throttle.WindowSeconds) * time.Second
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutSeconds) * time.Second
}

func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.Ops.TimeoutSeconds) * time.Second
}
