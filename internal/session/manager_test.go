// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package session

import (
	"testing"
	"time"

	"github.com/tomtom215/dvrwatch/internal/classifier"
	"github.com/tomtom215/dvrwatch/internal/models"
)

func testConfig() Config {
	return Config{
		ReopenWindow:       5 * time.Second,
		ChannelIdleTimeout: 4 * time.Hour,
		VODIdleTimeout:     24 * time.Hour,
		ClosedRetention:    time.Minute,
	}
}

func streamStart(t0 time.Time, device, channel, sessionID string) models.DomainEvent {
	return models.DomainEvent{
		Kind:      models.KindStreamStart,
		DeviceID:  device,
		SubjectID: channel,
		Timestamp: t0,
		Attributes: map[string]string{
			classifier.SessionIDAttr: sessionID,
			models.AttrChannelNumber: channel,
			models.AttrDeviceName:    device,
		},
	}
}

func streamStop(t0 time.Time, sessionID string) models.DomainEvent {
	return models.DomainEvent{
		Kind:      models.KindStreamStop,
		Timestamp: t0,
		Attributes: map[string]string{
			classifier.SessionIDAttr: sessionID,
		},
	}
}

func kinds(trs []models.Transition) []models.TransitionKind {
	out := make([]models.TransitionKind, len(trs))
	for i, tr := range trs {
		out[i] = tr.Kind
	}
	return out
}

func TestOpenCloseCycleSingleTransitions(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	// Start, then repeated activity updates, then stop.
	trs := m.Apply(streamStart(t0, "living-room", "7.1", "s1"))
	if len(trs) != 1 || trs[0].Kind != models.TransitionOpened {
		t.Fatalf("first start transitions = %v, want one opened", kinds(trs))
	}

	for i := 1; i <= 3; i++ {
		trs = m.Apply(streamStart(t0.Add(time.Duration(i)*time.Second), "living-room", "7.1", "s1"))
		if len(trs) != 0 {
			t.Fatalf("repeat start %d transitions = %v, want none", i, kinds(trs))
		}
	}

	trs = m.Apply(streamStop(t0.Add(90*time.Second), "s1"))
	if len(trs) != 1 || trs[0].Kind != models.TransitionClosed {
		t.Fatalf("stop transitions = %v, want one closed", kinds(trs))
	}

	// Duplicate stop is idempotent.
	if trs = m.Apply(streamStop(t0.Add(91*time.Second), "s1")); len(trs) != 0 {
		t.Errorf("duplicate stop transitions = %v, want none", kinds(trs))
	}
}

func TestReopenWithinWindowIsContinuation(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))
	m.Apply(streamStop(t0.Add(10*time.Second), "s1"))

	// Restart 3s after the stop, inside the 5s reopen window.
	trs := m.Apply(streamStart(t0.Add(13*time.Second), "den", "5.1", "s2"))
	if len(trs) != 1 {
		t.Fatalf("reopen transitions = %v, want one", kinds(trs))
	}
	if trs[0].Kind != models.TransitionOpened || !trs[0].Continuation {
		t.Errorf("reopen = %+v, want opened continuation", trs[0])
	}
	if !trs[0].Session.StartedAt.Equal(t0) {
		t.Errorf("StartedAt = %v, want original start %v preserved", trs[0].Session.StartedAt, t0)
	}
}

func TestReopenPastWindowIsNewSession(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))
	m.Apply(streamStop(t0.Add(10*time.Second), "s1"))

	restart := t0.Add(10*time.Second + 6*time.Second)
	trs := m.Apply(streamStart(restart, "den", "5.1", "s2"))
	if len(trs) != 1 || trs[0].Kind != models.TransitionOpened || trs[0].Continuation {
		t.Fatalf("restart past window = %v, want fresh opened", trs)
	}
	if !trs[0].Session.StartedAt.Equal(restart) {
		t.Errorf("StartedAt = %v, want fresh start %v", trs[0].Session.StartedAt, restart)
	}
}

func TestDeviceChannelSwitchClosesOldSession(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))

	trs := m.Apply(streamStart(t0.Add(time.Minute), "den", "9.2", "s2"))
	if len(trs) != 2 {
		t.Fatalf("switch transitions = %v, want closed then opened", kinds(trs))
	}
	if trs[0].Kind != models.TransitionClosed || trs[0].Session.Key.SubjectID != "5.1" {
		t.Errorf("first transition = %+v, want close of 5.1", trs[0])
	}
	if trs[1].Kind != models.TransitionOpened || trs[1].Session.Key.SubjectID != "9.2" {
		t.Errorf("second transition = %+v, want open of 9.2", trs[1])
	}
}

func TestVODProgressEmitsProgressTransition(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	start := models.DomainEvent{
		Kind:      models.KindVODPlayback,
		DeviceID:  "den",
		SubjectID: "2291",
		Timestamp: t0,
		Attributes: map[string]string{
			classifier.SessionIDAttr: "6-file-2291-x",
			models.AttrProgress:      "0:01:00",
		},
	}
	trs := m.Apply(start)
	if len(trs) != 1 || trs[0].Kind != models.TransitionOpened {
		t.Fatalf("vod start = %v, want opened", kinds(trs))
	}

	progress := start
	progress.Timestamp = t0.Add(time.Minute)
	progress.Attributes = map[string]string{
		classifier.SessionIDAttr: "6-file-2291-x",
		models.AttrProgress:      "0:02:00",
	}
	trs = m.Apply(progress)
	if len(trs) != 1 || trs[0].Kind != models.TransitionProgress {
		t.Fatalf("vod progress = %v, want progress transition", kinds(trs))
	}
	if got := trs[0].Session.Attributes[models.AttrProgress]; got != "0:02:00" {
		t.Errorf("session progress attr = %q, want 0:02:00", got)
	}
}

func TestStopForUnknownSessionIgnored(t *testing.T) {
	m := NewManager(testConfig())
	if trs := m.Apply(streamStop(time.Now(), "never-seen")); len(trs) != 0 {
		t.Errorf("unknown stop transitions = %v, want none", kinds(trs))
	}
}

func TestOutOfOrderStartDoesNotRegressStart(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))
	// A delayed duplicate with an earlier timestamp.
	m.Apply(streamStart(t0.Add(-30*time.Second), "den", "5.1", "s1"))

	snap := m.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("sessions = %d, want 1", len(snap))
	}
	if !snap[0].StartedAt.Equal(t0) {
		t.Errorf("StartedAt = %v, want %v (no regression)", snap[0].StartedAt, t0)
	}
	if !snap[0].LastSeenAt.Equal(t0) {
		t.Errorf("LastSeenAt = %v, want %v (no move backward)", snap[0].LastSeenAt, t0)
	}
}

func TestSweepClosesIdleSessions(t *testing.T) {
	cfg := testConfig()
	cfg.ChannelIdleTimeout = time.Minute
	m := NewManager(cfg)
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))

	// Before the timeout: nothing.
	if trs := m.Sweep(t0.Add(30 * time.Second)); len(trs) != 0 {
		t.Errorf("early sweep transitions = %v, want none", kinds(trs))
	}

	trs := m.Sweep(t0.Add(2 * time.Minute))
	if len(trs) != 1 || trs[0].Kind != models.TransitionClosed || !trs[0].SweptIdle {
		t.Fatalf("sweep transitions = %+v, want one swept close", trs)
	}
	if m.OpenCount(models.ActivityChannel) != 0 {
		t.Errorf("OpenCount = %d, want 0 after sweep", m.OpenCount(models.ActivityChannel))
	}
}

func TestSweepEvictsExpiredClosedSessions(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg)
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))
	m.Apply(streamStop(t0.Add(time.Second), "s1"))

	// Within reopen window + retention: still tracked.
	m.Sweep(t0.Add(2 * time.Second))
	if len(m.Snapshot()) != 1 {
		t.Fatal("closed session evicted too early")
	}

	m.Sweep(t0.Add(time.Second + cfg.ReopenWindow + cfg.ClosedRetention + time.Second))
	if len(m.Snapshot()) != 0 {
		t.Error("closed session not evicted after retention")
	}

	// The alias must be gone too: a late stop resolves to nothing.
	if trs := m.Apply(streamStop(t0.Add(time.Hour), "s1")); len(trs) != 0 {
		t.Errorf("stop after eviction = %v, want none", kinds(trs))
	}
}

func TestOpenCounts(t *testing.T) {
	m := NewManager(testConfig())
	t0 := time.Now()

	m.Apply(streamStart(t0, "den", "5.1", "s1"))
	m.Apply(streamStart(t0, "bedroom", "7.1", "s2"))
	m.Apply(models.DomainEvent{
		Kind: models.KindVODPlayback, DeviceID: "kitchen", SubjectID: "42", Timestamp: t0,
	})

	if got := m.OpenCount(models.ActivityChannel); got != 2 {
		t.Errorf("channel OpenCount = %d, want 2", got)
	}
	counts := m.Counts()
	if counts[models.ActivityChannel] != 2 || counts[models.ActivityVOD] != 1 {
		t.Errorf("Counts() = %v, want channel:2 vod:1", counts)
	}
}

func TestCooldownsIndependentOfReopenWindow(t *testing.T) {
	// The reopen window governs identity, the cooldown governs emission.
	// With a zero cooldown, a continuation still produces no second
	// opened transition; with a long cooldown, a fresh session is still
	// a fresh session even though emission would be suppressed.
	m := NewManager(testConfig())
	cds := NewCooldowns(map[models.ActivityKind]time.Duration{
		models.ActivityChannel: time.Hour,
	})
	t0 := time.Now()

	trs := m.Apply(streamStart(t0, "den", "5.1", "s1"))
	if !cds.Allow("den", models.ActivityChannel, t0) {
		t.Fatal("first alert must be allowed")
	}
	cds.Record("den", models.ActivityChannel, t0)

	m.Apply(streamStop(t0.Add(10*time.Second), "s1"))
	trs = m.Apply(streamStart(t0.Add(30*time.Second), "den", "5.1", "s2"))

	// Past the reopen window: a genuinely new session...
	if len(trs) != 1 || trs[0].Continuation {
		t.Fatalf("restart = %+v, want fresh opened", trs)
	}
	// ...whose notification is nevertheless suppressed by the cooldown.
	if cds.Allow("den", models.ActivityChannel, t0.Add(30*time.Second)) {
		t.Error("cooldown must suppress emission for the fresh session")
	}
	if !cds.Allow("den", models.ActivityChannel, t0.Add(2*time.Hour)) {
		t.Error("cooldown must expire after its window")
	}
}

func TestCooldownScopedPerDeviceAndActivity(t *testing.T) {
	cds := NewCooldowns(map[models.ActivityKind]time.Duration{
		models.ActivityChannel: time.Minute,
	})
	t0 := time.Now()

	cds.Record("den", models.ActivityChannel, t0)

	if cds.Allow("den", models.ActivityChannel, t0.Add(10*time.Second)) {
		t.Error("same device/activity inside window must be suppressed")
	}
	if !cds.Allow("bedroom", models.ActivityChannel, t0.Add(10*time.Second)) {
		t.Error("different device must not be suppressed")
	}
	if !cds.Allow("den", models.ActivityVOD, t0.Add(10*time.Second)) {
		t.Error("different activity must not be suppressed")
	}
	if !cds.Allow("den", models.ActivityRecording, t0) {
		t.Error("activity without a window must always be allowed")
	}
}
