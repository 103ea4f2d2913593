// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package diskmon

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/dvrwatch/internal/alerts"
	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
)

func infoAtPercent(free float64) models.DiskInfo {
	const total = uint64(1000) << 30
	return models.DiskInfo{
		FreeBytes:  uint64(free / 100 * float64(total)),
		TotalBytes: total,
	}
}

func newTestMonitor(cfg Config) *Monitor {
	d := alerts.NewDispatcher(config.AlertsConfig{}, nil, nil)
	return New(cfg, nil, d, nil)
}

func TestHysteresisAlertsOncePerEpisode(t *testing.T) {
	m := newTestMonitor(Config{PercentThreshold: 10})
	now := time.Now()

	// Free-percent readings and the alerts they must raise.
	readings := []struct {
		percent  float64
		wantLow  bool
		wantSent bool
	}{
		{15, false, false}, // healthy
		{9, true, true},    // crosses down: one alert
		{9, true, false},   // still low: silent
		{12, false, true},  // recovers: one notice
		{8, true, true},    // crosses down again: re-armed
	}

	var lows, recoveries int
	for i, r := range readings {
		now = now.Add(2 * time.Minute)
		payloads := m.evaluate(infoAtPercent(r.percent), now)

		if got := len(payloads) > 0; got != r.wantSent {
			t.Errorf("reading %d (%.0f%%): sent = %v, want %v", i, r.percent, got, r.wantSent)
		}
		if m.Low() != r.wantLow {
			t.Errorf("reading %d (%.0f%%): Low() = %v, want %v", i, r.percent, m.Low(), r.wantLow)
		}
		for _, p := range payloads {
			if strings.Contains(p.Body, "Low Disk Space") {
				lows++
			}
			if strings.Contains(p.Body, "Recovered") {
				recoveries++
			}
		}
	}

	if lows != 2 || recoveries != 1 {
		t.Errorf("alerts = %d low, %d recovered; want 2 and 1", lows, recoveries)
	}
}

func TestGigabyteBoundAlsoArms(t *testing.T) {
	m := newTestMonitor(Config{PercentThreshold: 10, GigabytesFree: 50})

	// 12% free of 300 GB is only 36 GB: healthy by percent, low by bytes.
	info := models.DiskInfo{
		FreeBytes:  36 << 30,
		TotalBytes: 300 << 30,
	}
	payloads := m.evaluate(info, time.Now())
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want low-space alert via gigabyte bound", len(payloads))
	}
	if !strings.Contains(payloads[0].Body, "Threshold: 10% or 50 GB") {
		t.Errorf("body = %q, missing threshold line", payloads[0].Body)
	}
}

func TestCooldownSuppressesRapidReArm(t *testing.T) {
	m := newTestMonitor(Config{PercentThreshold: 10, AlertCooldown: time.Hour})
	t0 := time.Now()

	if got := m.evaluate(infoAtPercent(9), t0); len(got) != 1 {
		t.Fatalf("first low reading raised %d payloads, want 1", len(got))
	}
	m.evaluate(infoAtPercent(12), t0.Add(2*time.Minute))

	// Re-arms inside the cooldown: low state flips but no alert goes out.
	if got := m.evaluate(infoAtPercent(9), t0.Add(4*time.Minute)); len(got) != 0 {
		t.Errorf("rapid re-arm raised %d payloads, want 0", len(got))
	}
	if !m.Low() {
		t.Error("monitor must still track low state during cooldown")
	}

	m.evaluate(infoAtPercent(12), t0.Add(6*time.Minute))
	if got := m.evaluate(infoAtPercent(9), t0.Add(2*time.Hour)); len(got) != 1 {
		t.Errorf("re-arm after cooldown raised %d payloads, want 1", len(got))
	}
}
