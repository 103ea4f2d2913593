// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package classifier maps raw DVR feed events to domain events.
//
// Classification is a pure function of the raw event: one RawEvent yields
// at most one DomainEvent. Anything unrecognized or malformed is dropped
// with a debug log and a metric increment; a malformed event never affects
// neighboring events.
package classifier

import (
	"strings"

	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// SessionIDAttr carries the raw feed session name on every activity event.
// The session manager uses it to resolve stop events, which arrive with an
// empty value and identify their session only by name.
const SessionIDAttr = "session_id"

// recordingValuePrefixes route programs.set events to their lifecycle kind.
const (
	recordingPrefix = "recording-"
	recordedPrefix  = "recorded-"
)

// Classify maps a raw feed event to a domain event. The second return is
// false when the event carries no domain meaning and must be dropped.
func Classify(raw models.RawEvent) (models.DomainEvent, bool) {
	switch raw.Type {
	case "activities.set":
		return classifyActivity(raw)
	case "jobs.created":
		return classifyJob(raw, models.KindRecordingScheduled)
	case "jobs.deleted":
		return classifyJob(raw, models.KindRecordingCancelled)
	case "programs.set":
		return classifyProgram(raw)
	default:
		drop(raw, "unknown_type")
		return models.DomainEvent{}, false
	}
}

// classifyActivity handles live TV and VOD playback activity.
func classifyActivity(raw models.RawEvent) (models.DomainEvent, bool) {
	if raw.Name == "" {
		drop(raw, "missing_name")
		return models.DomainEvent{}, false
	}

	// An empty value ends whatever activity the session name refers to.
	if strings.TrimSpace(raw.Value) == "" {
		kind := models.KindStreamStop
		if isFileSession(raw.Name) {
			kind = models.KindVODStop
		}
		ev := models.DomainEvent{
			Kind:      kind,
			Timestamp: raw.ReceivedAt,
			Attributes: map[string]string{
				SessionIDAttr: raw.Name,
			},
		}
		metrics.RecordEventClassified(string(kind))
		return ev, true
	}

	if isFileSession(raw.Name) {
		return classifyVOD(raw)
	}

	if strings.Contains(raw.Value, "Watching ch") {
		return classifyChannelWatch(raw)
	}

	drop(raw, "unrecognized_activity")
	return models.DomainEvent{}, false
}

// classifyChannelWatch parses a live TV watching value.
func classifyChannelWatch(raw models.RawEvent) (models.DomainEvent, bool) {
	number := extractChannelNumber(raw.Value)
	if number == "" {
		drop(raw, "missing_channel_number")
		return models.DomainEvent{}, false
	}

	device := extractDeviceName(raw.Value)
	ip := extractIPAddress(raw.Value)
	if device == "" {
		// Some clients report only their IP.
		device = ip
	}
	if device == "" {
		device = raw.Name
	}

	attrs := map[string]string{
		SessionIDAttr:            raw.Name,
		models.AttrChannelNumber: number,
	}
	if name := extractChannelName(raw.Value); name != "" {
		attrs[models.AttrChannelName] = name
	}
	if device != "" {
		attrs[models.AttrDeviceName] = device
	}
	if ip != "" {
		attrs[models.AttrDeviceIP] = ip
	}
	if res := extractResolution(raw.Value); res != "" {
		attrs[models.AttrResolution] = res
	}
	if src := extractSource(raw.Name); src != "" {
		attrs[models.AttrSource] = src
	}

	ev := models.DomainEvent{
		Kind:       models.KindStreamStart,
		DeviceID:   device,
		SubjectID:  number,
		Timestamp:  raw.ReceivedAt,
		Attributes: attrs,
	}
	metrics.RecordEventClassified(string(ev.Kind))
	return ev, true
}

// classifyVOD parses a recorded/library playback value.
func classifyVOD(raw models.RawEvent) (models.DomainEvent, bool) {
	fileID := extractFileID(raw.Name)
	if fileID == "" {
		drop(raw, "missing_file_id")
		return models.DomainEvent{}, false
	}

	attrs := map[string]string{
		SessionIDAttr:     raw.Name,
		models.AttrFileID: fileID,
	}

	device := extractDeviceName(raw.Value)
	if device == "" {
		device = raw.Name
	}
	attrs[models.AttrDeviceName] = device

	if ip := extractIPAddress(raw.Value); ip != "" {
		attrs[models.AttrDeviceIP] = ip
	}
	if progress := extractProgress(raw.Value); progress != "" {
		attrs[models.AttrProgress] = progress
	}

	ev := models.DomainEvent{
		Kind:       models.KindVODPlayback,
		DeviceID:   device,
		SubjectID:  fileID,
		Timestamp:  raw.ReceivedAt,
		Attributes: attrs,
	}
	metrics.RecordEventClassified(string(ev.Kind))
	return ev, true
}

// classifyJob handles recording job lifecycle events. The raw Name is the
// job ID; Value may carry the job title.
func classifyJob(raw models.RawEvent, kind models.EventKind) (models.DomainEvent, bool) {
	if raw.Name == "" {
		drop(raw, "missing_job_id")
		return models.DomainEvent{}, false
	}

	attrs := map[string]string{
		models.AttrJobID: raw.Name,
	}
	if raw.Value != "" {
		attrs[models.AttrTitle] = raw.Value
	}

	ev := models.DomainEvent{
		Kind:       kind,
		DeviceID:   "dvr",
		SubjectID:  raw.Name,
		Timestamp:  raw.ReceivedAt,
		Attributes: attrs,
	}
	metrics.RecordEventClassified(string(kind))
	return ev, true
}

// classifyProgram handles programs.set: the value prefix distinguishes a
// recording that just started ("recording-{jobID}") from one that just
// finished ("recorded-{fileID}").
func classifyProgram(raw models.RawEvent) (models.DomainEvent, bool) {
	var kind models.EventKind
	var subject, subjectAttr string

	switch {
	case strings.HasPrefix(raw.Value, recordingPrefix):
		kind = models.KindRecordingStarted
		subject = strings.TrimPrefix(raw.Value, recordingPrefix)
		subjectAttr = models.AttrJobID
	case strings.HasPrefix(raw.Value, recordedPrefix):
		kind = models.KindRecordingCompleted
		subject = strings.TrimPrefix(raw.Value, recordedPrefix)
		subjectAttr = models.AttrFileID
	default:
		drop(raw, "unrecognized_program")
		return models.DomainEvent{}, false
	}

	if subject == "" {
		drop(raw, "missing_program_subject")
		return models.DomainEvent{}, false
	}

	ev := models.DomainEvent{
		Kind:      kind,
		DeviceID:  "dvr",
		SubjectID: subject,
		Timestamp: raw.ReceivedAt,
		Attributes: map[string]string{
			subjectAttr: subject,
		},
	}
	metrics.RecordEventClassified(string(kind))
	return ev, true
}

func drop(raw models.RawEvent, reason string) {
	logging.Debug().
		Str("type", raw.Type).
		Str("name", raw.Name).
		Str("reason", reason).
		Msg("event dropped by classifier")
	metrics.RecordEventDropped(reason)
}
