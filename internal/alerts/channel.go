// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"context"
	"strconv"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// channelAlert implements the live TV policy: notify on session open only.
// Closes, continuations inside the reopen window, and progress refreshes
// are all silent.
func (d *Dispatcher) channelAlert(ctx context.Context, tr models.Transition) (models.AlertPayload, bool) {
	if !d.cfg.Channel.Enabled {
		return d.suppress(models.KindStreamStart, "disabled")
	}
	if tr.Kind != models.TransitionOpened {
		return models.AlertPayload{}, false
	}
	if tr.Continuation {
		return d.suppress(models.KindStreamStart, "continuation")
	}

	now := d.clock()
	device := tr.Session.Key.DeviceID
	if !d.cooldowns.Allow(device, models.ActivityChannel, now) {
		return d.suppress(models.KindStreamStart, "cooldown")
	}

	number := tr.Session.Attributes[models.AttrChannelNumber]
	name := tr.Session.Attributes[models.AttrChannelName]

	channel, haveChannel := d.meta.ChannelByNumber(ctx, number)
	if name == "" && haveChannel {
		name = channel.Name
	}
	if name == "" {
		name = "Channel " + number
	}

	var program models.Program
	var haveProgram bool
	if d.cfg.Channel.ShowProgramName || d.cfg.Channel.ImageSource == "program" {
		program, haveProgram = d.meta.ProgramOn(ctx, number, tr.Session.StartedAt)
	}

	cfg := d.cfg.Channel
	var b body
	if cfg.ShowChannelName {
		b.lead(emojiChannel, name)
	} else {
		b.lead(emojiChannel, "Watching TV")
	}
	if cfg.ShowChannelNumber {
		b.add("Channel", number)
	}
	if cfg.ShowProgramName && haveProgram {
		b.add("Program", program.Title)
	}
	if cfg.ShowResolution {
		b.add("Resolution", tr.Session.Attributes[models.AttrResolution])
	}
	if cfg.ShowDeviceName {
		b.add("Device", tr.Session.Attributes[models.AttrDeviceName])
	}
	if cfg.ShowDeviceIP {
		b.add("Device IP", tr.Session.Attributes[models.AttrDeviceIP])
	}
	if cfg.ShowSource {
		b.add("Source", tr.Session.Attributes[models.AttrSource])
	}
	if cfg.ShowStreamCount {
		b.add("Total Streams", strconv.Itoa(d.totalStreams()))
	}

	var imageURL string
	switch cfg.ImageSource {
	case "logo":
		if haveChannel {
			imageURL = channel.LogoURL
		}
	case "program":
		if haveProgram {
			imageURL = program.IconURL
		}
	}

	d.cooldowns.Record(device, models.ActivityChannel, now)
	return d.newPayload(models.KindStreamStart, titleWatchingTV, &b, imageURL), true
}
