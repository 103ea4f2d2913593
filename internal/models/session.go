// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package models

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a tracked viewing session.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
)

// SessionKey uniquely identifies a viewing session: one device consuming
// one subject within one activity category.
type SessionKey struct {
	DeviceID string
	Activity ActivityKind
	SubjectID string
}

// String renders the key in the ch7.1-LivingRoom style used in logs.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Activity, k.SubjectID, k.DeviceID)
}

// Session tracks one device/subject pair through its open and closed phases.
// A Closed session is retained for the reopen window so that a quick
// stop/start flap reattaches to the same logical viewing session instead of
// producing a second notification cycle.
type Session struct {
	Key        SessionKey
	State      SessionState
	StartedAt  time.Time
	LastSeenAt time.Time
	ClosedAt   time.Time
	Attributes map[string]string
}

// TransitionKind describes what a session manager state change means to the
// alert dispatcher.
type TransitionKind string

const (
	// TransitionOpened fires when a session moves Absent -> Open.
	TransitionOpened TransitionKind = "opened"

	// TransitionClosed fires when a session moves Open -> Closed, whether
	// by an explicit stop event or by the inactivity sweep.
	TransitionClosed TransitionKind = "closed"

	// TransitionProgress fires on a progress update to an open VOD session.
	// Whether it produces a notification is the dispatcher's decision.
	TransitionProgress TransitionKind = "progress"
)

// Transition is the session manager's output: a state change plus the
// session snapshot and triggering event at the moment of the change.
type Transition struct {
	Kind    TransitionKind
	Session Session
	Event   DomainEvent

	// Continuation marks a reopen within the reopen window. The session
	// identity is preserved and no new opened notification should fire.
	Continuation bool

	// SweptIdle marks a close produced by the inactivity sweep rather
	// than an explicit stop event.
	SweptIdle bool
}
