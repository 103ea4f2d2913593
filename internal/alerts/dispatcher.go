// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
	"github.com/tomtom215/dvrwatch/internal/session"
)

// Metadata is the enrichment lookup surface the policies need. Every lookup
// reports not-found instead of an error; a missing value means the alert
// goes out un-enriched, never that it is dropped.
type Metadata interface {
	ChannelByNumber(ctx context.Context, number string) (models.Channel, bool)
	ProgramOn(ctx context.Context, channelID string, at time.Time) (models.Program, bool)
	JobByID(ctx context.Context, id string) (models.Job, bool)
	RecordingByID(ctx context.Context, id string) (models.Recording, bool)
	VODByID(ctx context.Context, id string) (models.VODItem, bool)
}

// StreamCounter reports how many sessions of an activity kind are open,
// for the "Total Streams" line.
type StreamCounter func(models.ActivityKind) int

// Dispatcher applies the per-category alert policies: which transitions
// and events notify, which are suppressed, and what the payload says.
//
// Cooldowns live here, not in the session manager. Session identity (the
// reopen window) and emission suppression (cooldowns) are independent
// timers; a genuinely new session can still be silenced by a cooldown, and
// a cooldown of zero never manufactures extra sessions.
type Dispatcher struct {
	cfg       config.AlertsConfig
	fmtr      *Formatter
	meta      Metadata
	cooldowns *session.Cooldowns
	streams   StreamCounter
	clock     func() time.Time

	mu sync.Mutex
	// lastProgress tracks the last notified playback position per device,
	// for the significant-jump cooldown bypass.
	lastProgress map[string]time.Duration
}

// NewDispatcher creates the alert policy layer.
func NewDispatcher(cfg config.AlertsConfig, meta Metadata, streams StreamCounter) *Dispatcher {
	return &Dispatcher{
		cfg:  cfg,
		fmtr: NewFormatter(cfg.Timezone),
		meta: meta,
		cooldowns: session.NewCooldowns(map[models.ActivityKind]time.Duration{
			models.ActivityChannel:   cfg.Channel.Cooldown,
			models.ActivityVOD:       cfg.VOD.Cooldown,
			models.ActivityRecording: cfg.Recording.Cooldown,
		}),
		streams:      streams,
		clock:        time.Now,
		lastProgress: make(map[string]time.Duration),
	}
}

// OnTransition routes a session transition through its activity's policy.
// The second return is false when policy suppresses the notification.
func (d *Dispatcher) OnTransition(ctx context.Context, tr models.Transition) (models.AlertPayload, bool) {
	switch tr.Session.Key.Activity {
	case models.ActivityChannel:
		return d.channelAlert(ctx, tr)
	case models.ActivityVOD:
		return d.vodAlert(ctx, tr)
	default:
		return models.AlertPayload{}, false
	}
}

// OnEvent routes a non-session event (the recording lifecycle) through the
// recording policy.
func (d *Dispatcher) OnEvent(ctx context.Context, ev models.DomainEvent) (models.AlertPayload, bool) {
	switch ev.Kind {
	case models.KindRecordingScheduled, models.KindRecordingStarted,
		models.KindRecordingCompleted, models.KindRecordingCancelled:
		return d.recordingAlert(ctx, ev)
	default:
		return models.AlertPayload{}, false
	}
}

func (d *Dispatcher) newPayload(kind models.EventKind, title string, b *body, imageURL string) models.AlertPayload {
	return models.AlertPayload{
		ID:        uuid.NewString(),
		Kind:      kind,
		Activity:  kind.Activity(),
		Title:     title,
		Body:      b.String(),
		ImageURL:  imageURL,
		Timestamp: d.clock(),
	}
}

func (d *Dispatcher) suppress(kind models.EventKind, reason string) (models.AlertPayload, bool) {
	metrics.RecordAlertSuppressed(string(kind), reason)
	return models.AlertPayload{}, false
}

func (d *Dispatcher) totalStreams() int {
	if d.streams == nil {
		return 0
	}
	return d.streams(models.ActivityChannel) + d.streams(models.ActivityVOD)
}
