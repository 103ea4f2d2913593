// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dvrwatch/config.yaml",
	"/etc/dvrwatch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values. The alert
// toggles, cooldowns, and cache TTLs match the behavior users of Channels
// DVR alerting tools expect out of the box.
func defaultConfig() *Config {
	return &Config{
		DVR: DVRConfig{
			Host:              "",
			Port:              8089,
			Timeout:           10 * time.Second,
			ReconnectInitial:  1 * time.Second,
			ReconnectMax:      32 * time.Second,
			ReconnectBudget:   12,
			KeepAliveInterval: 60 * time.Second,
			RateLimit:         10,
			Burst:             20,
			BreakerFailures:   5,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8501,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Alerts: AlertsConfig{
			Channel: ChannelAlertConfig{
				Enabled:           true,
				ShowChannelName:   true,
				ShowChannelNumber: true,
				ShowProgramName:   true,
				ShowDeviceName:    true,
				ShowDeviceIP:      true,
				ShowSource:        true,
				ShowResolution:    true,
				ShowStreamCount:   true,
				ImageSource:       "logo",
				Cooldown:          5 * time.Second,
			},
			VOD: VODAlertConfig{
				Enabled:              true,
				ShowDeviceName:       true,
				ShowSummary:          true,
				ShowRating:           true,
				ShowGenres:           true,
				ShowCast:             true,
				ShowProgress:         true,
				Cooldown:             5 * time.Minute,
				SignificantThreshold: 5 * time.Minute,
			},
			Recording: RecordingAlertConfig{
				Enabled:   true,
				Scheduled: true,
				Started:   true,
				Completed: true,
				Cancelled: true,
				Cooldown:  5 * time.Second,
			},
			Timezone: "UTC",
		},
		Sessions: SessionsConfig{
			ReopenWindow:       5 * time.Second,
			ChannelIdleTimeout: 4 * time.Hour,
			VODIdleTimeout:     24 * time.Hour,
			SweepInterval:      5 * time.Minute,
			ClosedRetention:    1 * time.Minute,
		},
		Cache: CacheConfig{
			ChannelTTL: 24 * time.Hour,
			ProgramTTL: 24 * time.Hour,
			JobTTL:     1 * time.Hour,
			VODTTL:     24 * time.Hour,
		},
		Disk: DiskConfig{
			Enabled:          true,
			PollInterval:     2 * time.Minute,
			PercentThreshold: 10.0,
			GigabytesFree:    50.0,
			AlertCooldown:    1 * time.Hour,
		},
		Providers: ProvidersConfig{
			Timeout: 10 * time.Second,
			Webhook: WebhookConfig{
				Method: "POST",
			},
			Email: EmailConfig{
				Port: 587,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// CHANNELS_DVR_HOST -> dvr.host, PUSHOVER_TOKEN -> providers.pushover.token
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as env var strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"providers.email.to",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, which prevents random
// environment variables from polluting the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// DVR server
		"channels_dvr_host":      "dvr.host",
		"channels_dvr_port":      "dvr.port",
		"dvr_timeout":            "dvr.timeout",
		"dvr_reconnect_initial":  "dvr.reconnect_initial",
		"dvr_reconnect_max":      "dvr.reconnect_max",
		"dvr_reconnect_budget":   "dvr.reconnect_budget",
		"dvr_keepalive_interval": "dvr.keepalive_interval",
		"dvr_rate_limit":         "dvr.rate_limit",
		"dvr_burst":              "dvr.burst",
		"dvr_breaker_failures":   "dvr.breaker_failures",

		// HTTP API
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_requests",
		"rate_limit_window":   "server.rate_limit_window",

		// Channel watching alerts
		"alert_channel_enabled":     "alerts.channel.enabled",
		"channel_show_name":         "alerts.channel.show_channel_name",
		"channel_show_number":       "alerts.channel.show_channel_number",
		"channel_show_program":      "alerts.channel.show_program_name",
		"channel_show_device":       "alerts.channel.show_device_name",
		"channel_show_ip":           "alerts.channel.show_device_ip",
		"channel_show_source":       "alerts.channel.show_source",
		"channel_show_resolution":   "alerts.channel.show_resolution",
		"channel_show_stream_count": "alerts.channel.show_stream_count",
		"channel_image_source":      "alerts.channel.image_source",
		"channel_cooldown":          "alerts.channel.cooldown",

		// VOD alerts
		"alert_vod_enabled":         "alerts.vod.enabled",
		"vod_show_device":           "alerts.vod.show_device_name",
		"vod_show_summary":          "alerts.vod.show_summary",
		"vod_show_rating":           "alerts.vod.show_rating",
		"vod_show_genres":           "alerts.vod.show_genres",
		"vod_show_cast":             "alerts.vod.show_cast",
		"vod_show_progress":         "alerts.vod.show_progress",
		"vod_cooldown":              "alerts.vod.cooldown",
		"vod_significant_threshold": "alerts.vod.significant_threshold",

		// Recording alerts
		"alert_recording_enabled": "alerts.recording.enabled",
		"recording_scheduled":     "alerts.recording.scheduled",
		"recording_started":       "alerts.recording.started",
		"recording_completed":     "alerts.recording.completed",
		"recording_cancelled":     "alerts.recording.cancelled",
		"recording_cooldown":      "alerts.recording.cooldown",

		"alert_timezone": "alerts.timezone",

		// Sessions
		"session_reopen_window":        "sessions.reopen_window",
		"session_channel_idle_timeout": "sessions.channel_idle_timeout",
		"session_vod_idle_timeout":     "sessions.vod_idle_timeout",
		"session_sweep_interval":       "sessions.sweep_interval",
		"session_closed_retention":     "sessions.closed_retention",

		// Caches
		"cache_channel_ttl": "cache.channel_ttl",
		"cache_program_ttl": "cache.program_ttl",
		"cache_job_ttl":     "cache.job_ttl",
		"cache_vod_ttl":     "cache.vod_ttl",

		// Disk monitor
		"disk_enabled":           "disk.enabled",
		"disk_poll_interval":     "disk.poll_interval",
		"disk_percent_threshold": "disk.percent_threshold",
		"disk_gigabytes_free":    "disk.gigabytes_free",
		"disk_alert_cooldown":    "disk.alert_cooldown",

		// Providers
		"provider_timeout":     "providers.timeout",
		"pushover_enabled":     "providers.pushover.enabled",
		"pushover_token":       "providers.pushover.token",
		"pushover_user_key":    "providers.pushover.user_key",
		"discord_enabled":      "providers.discord.enabled",
		"discord_webhook_url":  "providers.discord.webhook_url",
		"slack_enabled":        "providers.slack.enabled",
		"slack_webhook_url":    "providers.slack.webhook_url",
		"telegram_enabled":     "providers.telegram.enabled",
		"telegram_bot_token":   "providers.telegram.bot_token",
		"telegram_chat_id":     "providers.telegram.chat_id",
		"email_enabled":        "providers.email.enabled",
		"email_host":           "providers.email.host",
		"email_port":           "providers.email.port",
		"email_username":       "providers.email.username",
		"email_password":       "providers.email.password",
		"email_from":           "providers.email.from",
		"email_to":             "providers.email.to",
		"webhook_enabled":      "providers.webhook.enabled",
		"webhook_url":          "providers.webhook.url",
		"webhook_method":       "providers.webhook.method",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
