// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// recordingAlert implements the recording lifecycle policy. The four kinds
// toggle independently; the cooldown is keyed by subject so repeated events
// for one job collapse without silencing other recordings.
func (d *Dispatcher) recordingAlert(ctx context.Context, ev models.DomainEvent) (models.AlertPayload, bool) {
	if !d.cfg.Recording.Enabled || !d.recordingKindEnabled(ev.Kind) {
		return d.suppress(ev.Kind, "disabled")
	}

	now := d.clock()
	if !d.cooldowns.Allow(ev.SubjectID, models.ActivityRecording, now) {
		return d.suppress(ev.Kind, "cooldown")
	}

	var payload models.AlertPayload
	switch ev.Kind {
	case models.KindRecordingScheduled:
		payload = d.recordingJobPayload(ctx, ev, emojiScheduled, titleRecordingScheduled)
	case models.KindRecordingStarted:
		payload = d.recordingJobPayload(ctx, ev, emojiStarted, titleRecordingStarted)
	case models.KindRecordingCancelled:
		payload = d.recordingJobPayload(ctx, ev, emojiCancelled, titleRecordingCancelled)
	case models.KindRecordingCompleted:
		payload = d.recordingCompletedPayload(ctx, ev)
	}

	d.cooldowns.Record(ev.SubjectID, models.ActivityRecording, now)
	return payload, true
}

func (d *Dispatcher) recordingKindEnabled(kind models.EventKind) bool {
	switch kind {
	case models.KindRecordingScheduled:
		return d.cfg.Recording.Scheduled
	case models.KindRecordingStarted:
		return d.cfg.Recording.Started
	case models.KindRecordingCompleted:
		return d.cfg.Recording.Completed
	case models.KindRecordingCancelled:
		return d.cfg.Recording.Cancelled
	default:
		return false
	}
}

// recordingJobPayload builds the scheduled, started, and cancelled alerts,
// all of which describe a job. A cancelled job may already be gone from the
// DVR, so the event's own title attribute is the fallback.
func (d *Dispatcher) recordingJobPayload(ctx context.Context, ev models.DomainEvent, emoji, title string) models.AlertPayload {
	jobID := ev.Attr(models.AttrJobID)
	job, haveJob := d.meta.JobByID(ctx, jobID)

	name := ev.Attr(models.AttrTitle)
	var imageURL string
	if haveJob {
		if job.Airing != nil && job.Airing.Title != "" {
			name = job.Airing.Title
		} else if job.Name != "" {
			name = job.Name
		}
		if job.Airing != nil {
			imageURL = job.Airing.Image
		}
	}
	if name == "" {
		name = "Recording " + jobID
	}

	var b body
	b.lead(emoji, name)
	if haveJob {
		if job.Airing != nil && job.Airing.EpisodeTitle != "" {
			b.add("Episode", job.Airing.EpisodeTitle)
		}
		b.add("Channel", job.ChannelNumber)
		if job.StartTime > 0 {
			b.add("Starts", d.fmtr.Clock(job.StartsAt()))
		}
		if job.Duration > 0 {
			b.add("Duration", FormatDuration(time.Duration(job.Duration)*time.Second))
		}
	}

	return d.newPayload(ev.Kind, title, &b, imageURL)
}

// recordingCompletedPayload builds the completed alert from the finished
// recording file, including its final duration and the current stream count.
func (d *Dispatcher) recordingCompletedPayload(ctx context.Context, ev models.DomainEvent) models.AlertPayload {
	fileID := ev.Attr(models.AttrFileID)
	rec, haveRec := d.meta.RecordingByID(ctx, fileID)

	name := rec.Title
	if name == "" {
		name = "Recording " + fileID
	}

	var b body
	b.lead(emojiCompleted, name)
	if haveRec {
		b.add("Episode", rec.EpisodeTitle)
		b.add("Channel", rec.ChannelNumber)
		if rec.Duration > 0 {
			b.add("Duration", FormatDuration(time.Duration(rec.Duration)*time.Second))
		}
		if rec.Cancelled {
			b.add("Status", "Stopped early")
		}
	}
	b.add("Total Streams", strconv.Itoa(d.totalStreams()))

	var imageURL string
	if haveRec {
		imageURL = rec.ImageURL
	}

	return d.newPayload(ev.Kind, titleRecordingCompleted, &b, imageURL)
}
