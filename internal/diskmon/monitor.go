// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package diskmon polls the DVR's recording disk and raises low-space
// alerts with hysteresis: one alert when space first drops below a
// threshold, silence while it stays low, one recovery notice when it
// climbs back, and a new alert only after a genuine re-arm.
package diskmon

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/dvrwatch/internal/alerts"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// Source provides disk usage snapshots.
type Source interface {
	DiskInfo(ctx context.Context) (models.DiskInfo, error)
}

// Publisher receives the payloads the monitor raises.
type Publisher func(models.AlertPayload)

// Config tunes the monitor.
type Config struct {
	PollInterval time.Duration

	// PercentThreshold and GigabytesFree arm the alert when free space
	// falls below either bound.
	PercentThreshold float64
	GigabytesFree    float64

	// AlertCooldown bounds repeat low alerts even across re-arms.
	AlertCooldown time.Duration
}

// Monitor is the disk space poller. It runs as a supervised service.
type Monitor struct {
	cfg        Config
	src        Source
	dispatcher *alerts.Dispatcher
	publish    Publisher

	mu           sync.Mutex
	low          bool
	lastLowAlert time.Time
	clock        func() time.Time
}

// New creates a disk monitor.
func New(cfg Config, src Source, dispatcher *alerts.Dispatcher, publish Publisher) *Monitor {
	return &Monitor{
		cfg:        cfg,
		src:        src,
		dispatcher: dispatcher,
		publish:    publish,
		clock:      time.Now,
	}
}

func (m *Monitor) String() string { return "disk-monitor" }

// Run polls until the context is cancelled. Poll failures are logged and
// skipped; the monitor's armed state only changes on successful readings.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	info, err := m.src.DiskInfo(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("disk poll failed")
		return
	}

	metrics.RecordDiskPoll(info.FreePercent(), info.FreeBytes)
	for _, payload := range m.evaluate(info, m.clock()) {
		m.publish(payload)
	}
}

// evaluate folds one reading into the hysteresis state machine and returns
// the payloads it raises.
func (m *Monitor) evaluate(info models.DiskInfo, now time.Time) []models.AlertPayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	isLow := m.isLow(info)

	switch {
	case isLow && !m.low:
		m.low = true
		if m.cfg.AlertCooldown > 0 && !m.lastLowAlert.IsZero() &&
			now.Sub(m.lastLowAlert) < m.cfg.AlertCooldown {
			logging.Debug().Msg("low disk alert suppressed by cooldown")
			metrics.RecordAlertSuppressed(string(models.KindDiskStatus), "cooldown")
			return nil
		}
		m.lastLowAlert = now
		logging.Warn().
			Float64("free_percent", info.FreePercent()).
			Uint64("free_bytes", info.FreeBytes).
			Msg("disk space below threshold")
		return []models.AlertPayload{
			m.dispatcher.DiskLowAlert(info, m.cfg.PercentThreshold, m.cfg.GigabytesFree),
		}

	case !isLow && m.low:
		m.low = false
		logging.Info().
			Float64("free_percent", info.FreePercent()).
			Msg("disk space recovered")
		return []models.AlertPayload{m.dispatcher.DiskRecoveredAlert(info)}

	default:
		return nil
	}
}

func (m *Monitor) isLow(info models.DiskInfo) bool {
	if m.cfg.PercentThreshold > 0 && info.FreePercent() < m.cfg.PercentThreshold {
		return true
	}
	gbFree := float64(info.FreeBytes) / float64(1<<30)
	return m.cfg.GigabytesFree > 0 && gbFree < m.cfg.GigabytesFree
}

// Low reports whether the last successful reading was below threshold.
func (m *Monitor) Low() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.low
}
