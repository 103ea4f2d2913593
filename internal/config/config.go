// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package config loads and validates the DVRWatch configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML file, then environment variables. Validation runs once at
// startup and fails fast on anything structurally invalid. A provider that
// is enabled but missing credentials is NOT a startup failure; the
// notification layer disables it with a warning so the rest of the engine
// keeps running.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for DVRWatch.
type Config struct {
	DVR       DVRConfig       `koanf:"dvr"`
	Server    ServerConfig    `koanf:"server"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Sessions  SessionsConfig  `koanf:"sessions"`
	Cache     CacheConfig     `koanf:"cache"`
	Disk      DiskConfig      `koanf:"disk"`
	Providers ProvidersConfig `koanf:"providers"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DVRConfig describes the Channels DVR server to monitor.
type DVRConfig struct {
	// Host is the DVR server hostname or IP. Required.
	Host string `koanf:"host" validate:"required"`

	// Port is the DVR server HTTP port.
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// Timeout bounds each metadata API request.
	Timeout time.Duration `koanf:"timeout"`

	// ReconnectInitial is the first backoff delay after a dropped event
	// feed connection. Doubles up to ReconnectMax.
	ReconnectInitial time.Duration `koanf:"reconnect_initial"`
	ReconnectMax     time.Duration `koanf:"reconnect_max"`

	// ReconnectBudget is the number of consecutive failed connection
	// attempts before the connector gives up and the process exits.
	ReconnectBudget int `koanf:"reconnect_budget" validate:"min=1"`

	// KeepAliveInterval is how often the /status probe runs while the
	// event feed is connected. 0 disables the probe.
	KeepAliveInterval time.Duration `koanf:"keepalive_interval"`

	// RateLimit caps metadata API requests per second; Burst is the
	// token bucket size.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
	Burst     int     `koanf:"burst" validate:"min=0"`

	// BreakerFailures is the consecutive-failure count that opens the
	// metadata client circuit breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`
}

// BaseURL returns the DVR server base URL.
func (d DVRConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.Host, d.Port)
}

// ServerConfig configures the DVRWatch HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// AlertsConfig holds the per-category alert policies.
type AlertsConfig struct {
	Channel   ChannelAlertConfig   `koanf:"channel"`
	VOD       VODAlertConfig       `koanf:"vod"`
	Recording RecordingAlertConfig `koanf:"recording"`

	// Timezone is the IANA zone used for timestamps in alert bodies.
	Timezone string `koanf:"timezone"`
}

// ChannelAlertConfig controls live TV watching alerts.
type ChannelAlertConfig struct {
	Enabled bool `koanf:"enabled"`

	ShowChannelName   bool `koanf:"show_channel_name"`
	ShowChannelNumber bool `koanf:"show_channel_number"`
	ShowProgramName   bool `koanf:"show_program_name"`
	ShowDeviceName    bool `koanf:"show_device_name"`
	ShowDeviceIP      bool `koanf:"show_device_ip"`
	ShowSource        bool `koanf:"show_source"`
	ShowResolution    bool `koanf:"show_resolution"`
	ShowStreamCount   bool `koanf:"show_stream_count"`

	// ImageSource selects alert artwork: the channel logo or the current
	// program art from the guide.
	ImageSource string `koanf:"image_source" validate:"oneof=logo program none"`

	// Cooldown suppresses repeat alerts for the same device within the
	// window, independent of session identity.
	Cooldown time.Duration `koanf:"cooldown"`
}

// VODAlertConfig controls recorded/library playback alerts.
type VODAlertConfig struct {
	Enabled bool `koanf:"enabled"`

	ShowDeviceName bool `koanf:"show_device_name"`
	ShowSummary    bool `koanf:"show_summary"`
	ShowRating     bool `koanf:"show_rating"`
	ShowGenres     bool `koanf:"show_genres"`
	ShowCast       bool `koanf:"show_cast"`
	ShowProgress   bool `koanf:"show_progress"`

	// Cooldown suppresses repeat alerts for the same device; a progress
	// jump of at least SignificantThreshold bypasses it.
	Cooldown             time.Duration `koanf:"cooldown"`
	SignificantThreshold time.Duration `koanf:"significant_threshold"`
}

// RecordingAlertConfig toggles the four recording lifecycle alerts
// independently.
type RecordingAlertConfig struct {
	Enabled   bool `koanf:"enabled"`
	Scheduled bool `koanf:"scheduled"`
	Started   bool `koanf:"started"`
	Completed bool `koanf:"completed"`
	Cancelled bool `koanf:"cancelled"`

	Cooldown time.Duration `koanf:"cooldown"`
}

// SessionsConfig tunes the session state machine.
type SessionsConfig struct {
	// ReopenWindow is how long a closed session remains reattachable.
	// A start for the same key inside the window is a continuation and
	// does not produce a new opened notification.
	ReopenWindow time.Duration `koanf:"reopen_window"`

	// ChannelIdleTimeout / VODIdleTimeout close open sessions that stop
	// receiving progress events without an explicit stop.
	ChannelIdleTimeout time.Duration `koanf:"channel_idle_timeout"`
	VODIdleTimeout     time.Duration `koanf:"vod_idle_timeout"`

	// SweepInterval is how often the idle/eviction sweep runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// ClosedRetention is how long closed sessions are kept past the
	// reopen window before eviction.
	ClosedRetention time.Duration `koanf:"closed_retention"`
}

// CacheConfig sets the TTL of each metadata store. A zero TTL disables
// that store.
type CacheConfig struct {
	ChannelTTL time.Duration `koanf:"channel_ttl"`
	ProgramTTL time.Duration `koanf:"program_ttl"`
	JobTTL     time.Duration `koanf:"job_ttl"`
	VODTTL     time.Duration `koanf:"vod_ttl"`
}

// DiskConfig controls the disk space monitor.
type DiskConfig struct {
	Enabled bool `koanf:"enabled"`

	PollInterval time.Duration `koanf:"poll_interval"`

	// PercentThreshold and GigabytesFree arm the low-space alert when
	// free space falls below either bound.
	PercentThreshold float64 `koanf:"percent_threshold" validate:"min=0,max=100"`
	GigabytesFree    float64 `koanf:"gigabytes_free" validate:"min=0"`

	// AlertCooldown bounds repeat low-space alerts even after re-arm.
	AlertCooldown time.Duration `koanf:"alert_cooldown"`
}

// ProvidersConfig configures the notification destinations.
type ProvidersConfig struct {
	// Timeout bounds a single delivery attempt to any provider.
	Timeout time.Duration `koanf:"timeout"`

	Pushover PushoverConfig `koanf:"pushover"`
	Discord  DiscordConfig  `koanf:"discord"`
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
	Email    EmailConfig    `koanf:"email"`
	Webhook  WebhookConfig  `koanf:"webhook"`
}

// PushoverConfig configures the Pushover provider.
type PushoverConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
	UserKey string `koanf:"user_key"`
}

// DiscordConfig configures the Discord webhook provider.
type DiscordConfig struct {
	Enabled    bool   `koanf:"enabled"`
	WebhookURL string `koanf:"webhook_url"`
}

// SlackConfig configures the Slack incoming webhook provider.
type SlackConfig struct {
	Enabled    bool   `koanf:"enabled"`
	WebhookURL string `koanf:"webhook_url"`
}

// TelegramConfig configures the Telegram bot provider.
type TelegramConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

// EmailConfig configures the SMTP provider.
type EmailConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Username string   `koanf:"username"`
	Password string   `koanf:"password"`
	From     string   `koanf:"from"`
	To       []string `koanf:"to"`
}

// WebhookConfig configures the generic JSON webhook provider.
type WebhookConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Method  string `koanf:"method"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks structural invariants. It returns the first violation
// found; missing provider credentials are deliberately not checked here.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.DVR.Timeout <= 0 {
		return fmt.Errorf("dvr.timeout must be positive, got %v", c.DVR.Timeout)
	}
	if c.DVR.ReconnectInitial <= 0 || c.DVR.ReconnectMax < c.DVR.ReconnectInitial {
		return fmt.Errorf("dvr reconnect backoff invalid: initial=%v max=%v",
			c.DVR.ReconnectInitial, c.DVR.ReconnectMax)
	}
	if c.Sessions.ReopenWindow < 0 {
		return fmt.Errorf("sessions.reopen_window must not be negative, got %v", c.Sessions.ReopenWindow)
	}
	if c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("sessions.sweep_interval must be positive, got %v", c.Sessions.SweepInterval)
	}
	if c.Disk.Enabled && c.Disk.PollInterval <= 0 {
		return fmt.Errorf("disk.poll_interval must be positive when the disk monitor is enabled, got %v",
			c.Disk.PollInterval)
	}
	if c.Alerts.Timezone != "" {
		if _, err := time.LoadLocation(c.Alerts.Timezone); err != nil {
			return fmt.Errorf("alerts.timezone %q is not a valid IANA zone: %w", c.Alerts.Timezone, err)
		}
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %v", c.Providers.Timeout)
	}

	return nil
}
