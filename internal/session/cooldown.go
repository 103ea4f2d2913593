// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package session

import (
	"sync"
	"time"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// cooldownKey scopes a cooldown to one device within one activity
// category. Two alerts for the same device and category inside the window
// collapse to one, regardless of which session produced them.
type cooldownKey struct {
	DeviceID string
	Activity models.ActivityKind
}

// Cooldowns is the notification cooldown registry. It is deliberately
// separate from the session manager: the reopen window governs session
// identity, cooldowns govern emission, and the two timers never share
// state.
type Cooldowns struct {
	mu      sync.Mutex
	last    map[cooldownKey]time.Time
	windows map[models.ActivityKind]time.Duration
}

// NewCooldowns creates a registry with per-activity windows. A missing or
// zero window means no cooldown for that activity.
func NewCooldowns(windows map[models.ActivityKind]time.Duration) *Cooldowns {
	w := make(map[models.ActivityKind]time.Duration, len(windows))
	for k, v := range windows {
		w[k] = v
	}
	return &Cooldowns{
		last:    make(map[cooldownKey]time.Time),
		windows: w,
	}
}

// Allow reports whether a notification for the device/activity pair may
// fire at now. It does not record anything; call Record after the alert
// is actually dispatched.
func (c *Cooldowns) Allow(deviceID string, activity models.ActivityKind, now time.Time) bool {
	window := c.windows[activity]
	if window <= 0 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[cooldownKey{DeviceID: deviceID, Activity: activity}]
	if !ok {
		return true
	}
	return now.Sub(last) >= window
}

// Record marks a notification as sent at now.
func (c *Cooldowns) Record(deviceID string, activity models.ActivityKind, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[cooldownKey{DeviceID: deviceID, Activity: activity}] = now
}
