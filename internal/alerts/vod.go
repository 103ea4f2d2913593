// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"context"
	"strings"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// vodCastLimit caps the cast line so alerts stay glanceable.
const vodCastLimit = 3

// vodAlert implements the recorded/library playback policy. Opens notify
// subject to the cooldown; progress refreshes notify only when the playback
// position jumped by at least the significant threshold, which bypasses
// the cooldown (a seek is new information, a steady tick is not).
func (d *Dispatcher) vodAlert(ctx context.Context, tr models.Transition) (models.AlertPayload, bool) {
	if !d.cfg.VOD.Enabled {
		return d.suppress(models.KindVODPlayback, "disabled")
	}

	device := tr.Session.Key.DeviceID
	now := d.clock()
	progress, haveProgress := ParseProgress(tr.Session.Attributes[models.AttrProgress])

	switch tr.Kind {
	case models.TransitionOpened:
		if tr.Continuation {
			return d.suppress(models.KindVODPlayback, "continuation")
		}
		if !d.cooldowns.Allow(device, models.ActivityVOD, now) {
			return d.suppress(models.KindVODPlayback, "cooldown")
		}

	case models.TransitionProgress:
		significant := false
		if haveProgress && d.cfg.VOD.SignificantThreshold > 0 {
			d.mu.Lock()
			last, seen := d.lastProgress[device]
			d.mu.Unlock()
			if seen {
				delta := progress - last
				if delta < 0 {
					delta = -delta
				}
				significant = delta >= d.cfg.VOD.SignificantThreshold
			}
		}
		if !significant && !d.cooldowns.Allow(device, models.ActivityVOD, now) {
			return d.suppress(models.KindVODPlayback, "cooldown")
		}
		if !significant {
			// Inside the session, a cooldown-expired tick is still just
			// a tick. Only jumps re-notify.
			return d.suppress(models.KindVODPlayback, "no_significant_change")
		}

	default:
		return models.AlertPayload{}, false
	}

	fileID := tr.Session.Attributes[models.AttrFileID]
	item, haveItem := d.meta.VODByID(ctx, fileID)

	title := item.Title
	if title == "" {
		title = "Recorded Content"
	}
	if item.EpisodeTitle != "" {
		title += " - " + item.EpisodeTitle
	}

	cfg := d.cfg.VOD
	var b body
	b.lead(emojiVOD, title)
	if cfg.ShowDeviceName {
		b.add("Device", tr.Session.Attributes[models.AttrDeviceName])
	}
	if cfg.ShowRating && haveItem {
		b.add("Rating", item.ContentRating)
	}
	if cfg.ShowGenres && haveItem {
		b.add("Genres", strings.Join(item.Genres, ", "))
	}
	if cfg.ShowCast && haveItem {
		cast := item.Cast
		if len(cast) > vodCastLimit {
			cast = cast[:vodCastLimit]
		}
		b.add("Cast", strings.Join(cast, ", "))
	}
	if cfg.ShowProgress && haveProgress {
		b.add("Progress", FormatDuration(progress))
	}
	if cfg.ShowSummary && haveItem {
		b.raw(truncate(item.Summary, 200))
	}

	var imageURL string
	if haveItem {
		imageURL = item.ImageURL
	}

	d.cooldowns.Record(device, models.ActivityVOD, now)
	if haveProgress {
		d.mu.Lock()
		d.lastProgress[device] = progress
		d.mu.Unlock()
	}

	return d.newPayload(models.KindVODPlayback, titlePlayingVideo, &b, imageURL), true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
