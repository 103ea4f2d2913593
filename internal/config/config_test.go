// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.DVR.Host = "192.168.1.10"
	return cfg
}

func TestDefaultsAreValidWithHost(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaults = %v, want nil", err)
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with empty dvr.host = nil, want error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dvr timeout", func(c *Config) { c.DVR.Timeout = 0 }},
		{"backoff max below initial", func(c *Config) { c.DVR.ReconnectMax = 500 * time.Millisecond }},
		{"port out of range", func(c *Config) { c.Server.Port = 99999 }},
		{"bad image source", func(c *Config) { c.Alerts.Channel.ImageSource = "poster" }},
		{"negative reopen window", func(c *Config) { c.Sessions.ReopenWindow = -time.Second }},
		{"zero sweep interval", func(c *Config) { c.Sessions.SweepInterval = 0 }},
		{"disk poll zero while enabled", func(c *Config) { c.Disk.PollInterval = 0 }},
		{"percent threshold above 100", func(c *Config) { c.Disk.PercentThreshold = 150 }},
		{"unknown timezone", func(c *Config) { c.Alerts.Timezone = "Mars/Olympus" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"zero provider timeout", func(c *Config) { c.Providers.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error for %s", tt.name)
			}
		})
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
dvr:
  host: dvr.local
  port: 8189
alerts:
  channel:
    cooldown: 10s
disk:
  percent_threshold: 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DVR.Host != "dvr.local" {
		t.Errorf("dvr.host = %q, want dvr.local", cfg.DVR.Host)
	}
	if cfg.DVR.Port != 8189 {
		t.Errorf("dvr.port = %d, want 8189", cfg.DVR.Port)
	}
	if cfg.Alerts.Channel.Cooldown != 10*time.Second {
		t.Errorf("channel cooldown = %v, want 10s", cfg.Alerts.Channel.Cooldown)
	}
	if cfg.Disk.PercentThreshold != 20 {
		t.Errorf("disk.percent_threshold = %v, want 20", cfg.Disk.PercentThreshold)
	}
	// Untouched values keep their defaults.
	if cfg.Cache.JobTTL != time.Hour {
		t.Errorf("cache.job_ttl = %v, want default 1h", cfg.Cache.JobTTL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("dvr:\n  host: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CHANNELS_DVR_HOST", "from-env")
	t.Setenv("PUSHOVER_ENABLED", "true")
	t.Setenv("PUSHOVER_TOKEN", "app-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DVR.Host != "from-env" {
		t.Errorf("dvr.host = %q, want from-env (env must win over file)", cfg.DVR.Host)
	}
	if !cfg.Providers.Pushover.Enabled || cfg.Providers.Pushover.Token != "app-token" {
		t.Errorf("pushover provider = %+v, want enabled with token", cfg.Providers.Pushover)
	}
}

func TestLoadSplitsCommaSeparatedSlices(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nonexistent.yaml"))
	t.Setenv("CHANNELS_DVR_HOST", "dvr.local")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	to := cfg.Providers.Email.To
	if len(to) != 2 || to[0] != "a@example.com" || to[1] != "b@example.com" {
		t.Errorf("email.to = %v, want two trimmed recipients", to)
	}
}

func TestEnvTransformSkipsUnknownVars(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want empty (unmapped vars skipped)", got)
	}
	if got := envTransformFunc("CHANNELS_DVR_HOST"); got != "dvr.host" {
		t.Errorf("envTransformFunc(CHANNELS_DVR_HOST) = %q, want dvr.host", got)
	}
}
