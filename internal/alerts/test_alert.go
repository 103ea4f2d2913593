// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"fmt"
	"time"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// TestAlert builds a synthetic payload for one activity kind, for the
// manual test endpoint. It bypasses enablement toggles and cooldowns so an
// operator can verify provider wiring regardless of policy state.
func (d *Dispatcher) TestAlert(activity models.ActivityKind) (models.AlertPayload, error) {
	switch activity {
	case models.ActivityChannel:
		var b body
		b.lead(emojiChannel, "Test Channel")
		b.add("Channel", "100.1")
		b.add("Device", "Test Device")
		b.raw("This is a test alert from DVRWatch.")
		return d.newPayload(models.KindStreamStart, titleWatchingTV, &b, ""), nil

	case models.ActivityVOD:
		var b body
		b.lead(emojiVOD, "Test Movie")
		b.add("Device", "Test Device")
		b.raw("This is a test alert from DVRWatch.")
		return d.newPayload(models.KindVODPlayback, titlePlayingVideo, &b, ""), nil

	case models.ActivityRecording:
		var b body
		b.lead(emojiCompleted, "Test Recording")
		b.add("Duration", FormatDuration(30*time.Minute))
		b.raw("This is a test alert from DVRWatch.")
		return d.newPayload(models.KindRecordingCompleted, titleRecordingCompleted, &b, ""), nil

	case models.ActivityDisk:
		return d.DiskLowAlert(models.DiskInfo{
			FreeBytes:  40 << 30,
			TotalBytes: 500 << 30,
			UsedBytes:  460 << 30,
		}, 10, 50), nil

	default:
		return models.AlertPayload{}, fmt.Errorf("unknown alert kind %q", activity)
	}
}
