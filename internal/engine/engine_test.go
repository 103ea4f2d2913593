// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/dvrwatch/internal/alerts"
	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
	"github.com/tomtom215/dvrwatch/internal/notify"
	"github.com/tomtom215/dvrwatch/internal/session"
)

// nopMetadata reports not-found for every lookup.
type nopMetadata struct{}

func (nopMetadata) ChannelByNumber(context.Context, string) (models.Channel, bool) {
	return models.Channel{}, false
}
func (nopMetadata) ProgramOn(context.Context, string, time.Time) (models.Program, bool) {
	return models.Program{}, false
}
func (nopMetadata) JobByID(context.Context, string) (models.Job, bool) {
	return models.Job{}, false
}
func (nopMetadata) RecordingByID(context.Context, string) (models.Recording, bool) {
	return models.Recording{}, false
}
func (nopMetadata) VODByID(context.Context, string) (models.VODItem, bool) {
	return models.VODItem{}, false
}

// captureProvider records delivered payloads in arrival order.
type captureProvider struct {
	mu       sync.Mutex
	payloads []models.AlertPayload
}

func (c *captureProvider) Name() string { return "capture" }

func (c *captureProvider) Send(_ context.Context, payload models.AlertPayload) error {
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()
	return nil
}

func (c *captureProvider) delivered() []models.AlertPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.AlertPayload, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func (c *captureProvider) waitFor(t *testing.T, n int) []models.AlertPayload {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := c.delivered()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d payloads, want %d", len(got), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func alertsConfig() config.AlertsConfig {
	return config.AlertsConfig{
		Channel: config.ChannelAlertConfig{
			Enabled:           true,
			ShowChannelName:   true,
			ShowChannelNumber: true,
			ShowDeviceName:    true,
			Cooldown:          0,
		},
		VOD:       config.VODAlertConfig{Enabled: true},
		Recording: config.RecordingAlertConfig{Enabled: true, Completed: true},
	}
}

func newTestEngine(t *testing.T) (*Engine, *captureProvider, context.CancelFunc) {
	t.Helper()

	manager := session.NewManager(session.Config{
		ReopenWindow:    5 * time.Second,
		ClosedRetention: time.Minute,
	})
	dispatcher := alerts.NewDispatcher(alertsConfig(), nopMetadata{}, manager.OpenCount)
	provider := &captureProvider{}
	fanout := notify.NewFanoutWith(time.Second, provider)
	recorder := NewRecorder(16)

	e := New(Config{SweepInterval: time.Hour}, nil, manager, dispatcher, fanout, nil, recorder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go e.RunDeliverer(ctx)
	t.Cleanup(func() {
		cancel()
		e.Close()
	})
	return e, provider, cancel
}

func watchingEvent(name, value string) models.RawEvent {
	return models.RawEvent{
		Type:       "activities.set",
		Name:       name,
		Value:      value,
		ReceivedAt: time.Now(),
	}
}

func TestPipelineDeliversChannelAlert(t *testing.T) {
	e, provider, _ := newTestEngine(t)
	ctx := context.Background()

	e.handleRaw(ctx, watchingEvent("6-stream-abc",
		"Watching ch7.1 WABC-DT from Living Room"))

	got := provider.waitFor(t, 1)
	if got[0].Kind != models.KindStreamStart {
		t.Errorf("Kind = %v", got[0].Kind)
	}
	if !strings.Contains(got[0].Body, "📺 WABC-DT") {
		t.Errorf("body = %q", got[0].Body)
	}

	// The activity feed recorded the delivery outcome.
	recent := e.RecentActivity(0)
	if len(recent) != 1 {
		t.Fatalf("activity feed = %d entries, want 1", len(recent))
	}
	if recent[0].Attempts["capture"].Outcome != models.OutcomeSuccess {
		t.Errorf("attempt = %+v", recent[0].Attempts["capture"])
	}
}

func TestPipelineReopenWithinWindowIsOneAlert(t *testing.T) {
	e, provider, _ := newTestEngine(t)
	ctx := context.Background()

	e.handleRaw(ctx, watchingEvent("6-stream-abc", "Watching ch7.1 WABC-DT from Den"))
	e.handleRaw(ctx, watchingEvent("6-stream-abc", ""))
	e.handleRaw(ctx, watchingEvent("6-stream-abc2", "Watching ch7.1 WABC-DT from Den"))

	provider.waitFor(t, 1)
	// Give a spurious second alert time to surface before asserting.
	time.Sleep(50 * time.Millisecond)
	if got := provider.delivered(); len(got) != 1 {
		t.Errorf("delivered = %d alerts, want 1 (reopen is a continuation)", len(got))
	}
}

func TestPipelinePreservesAlertOrder(t *testing.T) {
	e, provider, _ := newTestEngine(t)
	ctx := context.Background()

	devices := []string{"Den", "Bedroom", "Kitchen"}
	for i, device := range devices {
		e.handleRaw(ctx, watchingEvent(
			"6-stream-"+device,
			"Watching ch"+string(rune('1'+i))+" Chan from "+device))
	}

	got := provider.waitFor(t, 3)
	for i, device := range devices {
		if !strings.Contains(got[i].Body, "Device: "+device) {
			t.Errorf("alert %d body = %q, want device %s (order preserved)", i, got[i].Body, device)
		}
	}
}

func TestTestAlertBypassesQueue(t *testing.T) {
	e, provider, _ := newTestEngine(t)

	attempts, err := e.TestAlert(context.Background(), models.ActivityChannel)
	if err != nil {
		t.Fatalf("TestAlert: %v", err)
	}
	if attempts["capture"].Outcome != models.OutcomeSuccess {
		t.Errorf("attempts = %+v", attempts)
	}
	if got := provider.delivered(); len(got) != 1 {
		t.Errorf("delivered = %d, want 1", len(got))
	}
	if len(e.RecentActivity(0)) != 1 {
		t.Error("test alert missing from activity feed")
	}
}
