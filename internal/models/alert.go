// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package models

import "time"

// AlertPayload is the immutable, provider-independent representation of one
// notification. The fan-out delivers the same payload to every enabled
// provider; providers adapt it to their wire format but never mutate it.
type AlertPayload struct {
	ID        string       `json:"id"`
	Kind      EventKind    `json:"kind"`
	Activity  ActivityKind `json:"activity"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	ImageURL  string       `json:"image_url,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// AttemptOutcome is the terminal result of delivering one payload to one
// provider.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
)

// NotificationAttempt records one provider delivery, including retries.
type NotificationAttempt struct {
	Provider string         `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
	Attempts int            `json:"attempts"`
	Elapsed  time.Duration  `json:"elapsed"`
}

// ActivityRecord is one entry in the bounded recent-activity feed: an alert
// plus its per-provider delivery outcomes.
type ActivityRecord struct {
	Alert    AlertPayload                   `json:"alert"`
	Attempts map[string]NotificationAttempt `json:"attempts"`
	LoggedAt time.Time                      `json:"logged_at"`
}
