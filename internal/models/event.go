// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package models

import "time"

// RawEvent is a single decoded payload from the DVR server's SSE feed.
//
// The feed delivers small JSON documents of the shape
// {"Type": "activities.set", "Name": "6-stream-192.168.1.5", "Value": "Watching ch7.1 ..."}.
// Protocol-level events ("hello") are filtered by the connector and never
// reach the classifier.
type RawEvent struct {
	Type  string `json:"Type"`
	Name  string `json:"Name"`
	Value string `json:"Value"`

	// ReceivedAt is stamped by the connector when the event is decoded.
	ReceivedAt time.Time `json:"-"`
}

// EventKind identifies the domain meaning of a classified event.
type EventKind string

const (
	KindStreamStart        EventKind = "stream_start"
	KindStreamStop         EventKind = "stream_stop"
	KindVODPlayback        EventKind = "vod_playback"
	KindVODStop            EventKind = "vod_stop"
	KindRecordingScheduled EventKind = "recording_scheduled"
	KindRecordingStarted   EventKind = "recording_started"
	KindRecordingCompleted EventKind = "recording_completed"
	KindRecordingCancelled EventKind = "recording_cancelled"
	KindDiskStatus         EventKind = "disk_status"
)

// ActivityKind groups event kinds into the coarse activity categories used
// for session tracking, cooldowns, and per-category alert policies.
type ActivityKind string

const (
	ActivityChannel   ActivityKind = "channel"
	ActivityVOD       ActivityKind = "vod"
	ActivityRecording ActivityKind = "recording"
	ActivityDisk      ActivityKind = "disk"
)

// Activity returns the activity category for an event kind.
func (k EventKind) Activity() ActivityKind {
	switch k {
	case KindStreamStart, KindStreamStop:
		return ActivityChannel
	case KindVODPlayback, KindVODStop:
		return ActivityVOD
	case KindRecordingScheduled, KindRecordingStarted,
		KindRecordingCompleted, KindRecordingCancelled:
		return ActivityRecording
	default:
		return ActivityDisk
	}
}

// IsStart reports whether the kind opens or refreshes a session.
func (k EventKind) IsStart() bool {
	return k == KindStreamStart || k == KindVODPlayback
}

// IsStop reports whether the kind closes a session.
func (k EventKind) IsStop() bool {
	return k == KindStreamStop || k == KindVODStop
}

// Well-known attribute keys on DomainEvent.Attributes.
const (
	AttrChannelNumber = "channel_number"
	AttrChannelName   = "channel_name"
	AttrDeviceName    = "device_name"
	AttrDeviceIP      = "device_ip"
	AttrResolution    = "resolution"
	AttrSource        = "source"
	AttrFileID        = "file_id"
	AttrJobID         = "job_id"
	AttrProgress      = "progress"
	AttrTitle         = "title"
)

// DomainEvent is a classified, semantically meaningful event. Each RawEvent
// maps to at most one DomainEvent; malformed input is dropped at the
// classifier with a log line and a metric increment.
type DomainEvent struct {
	Kind EventKind

	// DeviceID identifies the playback device or client. For recording
	// events this is the synthetic device "dvr".
	DeviceID string

	// SubjectID identifies what is being consumed: a channel number for
	// live TV, a file ID for VOD, a job or file ID for recordings.
	SubjectID string

	Timestamp  time.Time
	Attributes map[string]string
}

// Attr returns a single attribute value, or "" when absent.
func (e DomainEvent) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
