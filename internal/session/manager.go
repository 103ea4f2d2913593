// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package session tracks viewing sessions through their lifecycle and
// decides which state transitions the alert dispatcher sees.
//
// The manager is the single arbiter of session identity. The reopen window
// is part of identity: a stop followed by a start for the same key inside
// the window reattaches to the same logical session (a continuation) and
// produces no new opened transition. Notification cooldowns are a separate
// concern handled by the Cooldowns registry; the two timers compose but
// never share state.
package session

import (
	"sync"
	"time"

	"github.com/tomtom215/dvrwatch/internal/classifier"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// Config tunes the session state machine.
type Config struct {
	// ReopenWindow is how long a closed session remains reattachable.
	ReopenWindow time.Duration

	// ChannelIdleTimeout and VODIdleTimeout bound how long an open
	// session survives without events before the sweep closes it.
	ChannelIdleTimeout time.Duration
	VODIdleTimeout     time.Duration

	// ClosedRetention is how long closed sessions linger past the
	// reopen window before eviction.
	ClosedRetention time.Duration
}

// Manager holds all session state behind one mutex. Apply and Sweep are
// the only mutation paths; both return the transitions they caused so the
// caller can dispatch alerts in order.
type Manager struct {
	mu       sync.Mutex
	sessions map[models.SessionKey]*models.Session

	// aliases maps the feed's session name to our key. Stop events
	// arrive with an empty value and identify their session only by
	// that name.
	aliases map[string]models.SessionKey

	cfg   Config
	clock func() time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		sessions: make(map[models.SessionKey]*models.Session),
		aliases:  make(map[string]models.SessionKey),
		cfg:      cfg,
		clock:    time.Now,
	}
}

// Apply feeds one classified event through the state machine and returns
// the transitions it caused, in emission order. Events that are not
// session-scoped (recording lifecycle, disk status) pass through untouched
// at the engine level and never reach Apply.
func (m *Manager) Apply(ev models.DomainEvent) []models.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case ev.Kind.IsStart():
		return m.applyStart(ev)
	case ev.Kind.IsStop():
		return m.applyStop(ev)
	default:
		return nil
	}
}

func (m *Manager) applyStart(ev models.DomainEvent) []models.Transition {
	key := models.SessionKey{
		DeviceID:  ev.DeviceID,
		Activity:  ev.Kind.Activity(),
		SubjectID: ev.SubjectID,
	}

	if sid := ev.Attr(classifier.SessionIDAttr); sid != "" {
		m.aliases[sid] = key
	}

	var transitions []models.Transition

	// A device switching subjects closes its previous session first:
	// the stop for the old channel may never arrive.
	for k, s := range m.sessions {
		if k == key || s.State != models.SessionOpen {
			continue
		}
		if k.DeviceID == key.DeviceID && k.Activity == key.Activity {
			s.State = models.SessionClosed
			s.ClosedAt = ev.Timestamp
			metrics.RecordSessionClosed(string(k.Activity), false)
			transitions = append(transitions, models.Transition{
				Kind:    models.TransitionClosed,
				Session: *s,
				Event:   ev,
			})
			logging.Debug().
				Str("old", k.String()).
				Str("new", key.String()).
				Msg("device switched subjects, closing previous session")
		}
	}

	s, exists := m.sessions[key]
	switch {
	case !exists:
		s = m.newSessionLocked(key, ev)
		transitions = append(transitions, models.Transition{
			Kind:    models.TransitionOpened,
			Session: *s,
			Event:   ev,
		})

	case s.State == models.SessionOpen:
		m.refreshLocked(s, ev)
		if ev.Kind == models.KindVODPlayback {
			transitions = append(transitions, models.Transition{
				Kind:    models.TransitionProgress,
				Session: *s,
				Event:   ev,
			})
		}

	case s.State == models.SessionClosed:
		if ev.Timestamp.Sub(s.ClosedAt) <= m.cfg.ReopenWindow {
			// Continuation: same logical session, no new cycle.
			s.State = models.SessionOpen
			s.ClosedAt = time.Time{}
			m.refreshLocked(s, ev)
			metrics.RecordSessionOpened(string(key.Activity))
			transitions = append(transitions, models.Transition{
				Kind:         models.TransitionOpened,
				Session:      *s,
				Event:        ev,
				Continuation: true,
			})
		} else {
			s = m.newSessionLocked(key, ev)
			transitions = append(transitions, models.Transition{
				Kind:    models.TransitionOpened,
				Session: *s,
				Event:   ev,
			})
		}
	}

	return transitions
}

// newSessionLocked creates, stores, and returns an open session.
func (m *Manager) newSessionLocked(key models.SessionKey, ev models.DomainEvent) *models.Session {
	s := &models.Session{
		Key:        key,
		State:      models.SessionOpen,
		StartedAt:  ev.Timestamp,
		LastSeenAt: ev.Timestamp,
		Attributes: cloneAttrs(ev.Attributes),
	}
	m.sessions[key] = s
	metrics.RecordSessionOpened(string(key.Activity))
	return s
}

// refreshLocked folds a repeat or progress event into an open session.
// Out-of-order events may carry earlier timestamps: LastSeenAt only moves
// forward and StartedAt never regresses.
func (m *Manager) refreshLocked(s *models.Session, ev models.DomainEvent) {
	if ev.Timestamp.After(s.LastSeenAt) {
		s.LastSeenAt = ev.Timestamp
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = ev.Timestamp
	}
	for k, v := range ev.Attributes {
		if v != "" {
			if s.Attributes == nil {
				s.Attributes = make(map[string]string)
			}
			s.Attributes[k] = v
		}
	}
}

func (m *Manager) applyStop(ev models.DomainEvent) []models.Transition {
	key, ok := m.resolveKeyLocked(ev)
	if !ok {
		logging.Debug().
			Str("session_id", ev.Attr(classifier.SessionIDAttr)).
			Msg("stop event for unknown session ignored")
		return nil
	}

	s, exists := m.sessions[key]
	if !exists || s.State != models.SessionOpen {
		// Duplicate stop; a cycle closes at most once.
		return nil
	}

	s.State = models.SessionClosed
	s.ClosedAt = ev.Timestamp
	if ev.Timestamp.After(s.LastSeenAt) {
		s.LastSeenAt = ev.Timestamp
	}
	metrics.RecordSessionClosed(string(key.Activity), false)

	return []models.Transition{{
		Kind:    models.TransitionClosed,
		Session: *s,
		Event:   ev,
	}}
}

// resolveKeyLocked finds the session key for a stop event, via the alias
// index when the event carries no device identity of its own.
func (m *Manager) resolveKeyLocked(ev models.DomainEvent) (models.SessionKey, bool) {
	if ev.DeviceID != "" && ev.SubjectID != "" {
		return models.SessionKey{
			DeviceID:  ev.DeviceID,
			Activity:  ev.Kind.Activity(),
			SubjectID: ev.SubjectID,
		}, true
	}
	if sid := ev.Attr(classifier.SessionIDAttr); sid != "" {
		key, ok := m.aliases[sid]
		return key, ok
	}
	return models.SessionKey{}, false
}

// Sweep closes idle open sessions and evicts expired closed ones. It runs
// on the engine's ticker and returns the close transitions it caused.
func (m *Manager) Sweep(now time.Time) []models.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	var transitions []models.Transition

	for key, s := range m.sessions {
		switch s.State {
		case models.SessionOpen:
			timeout := m.idleTimeout(key.Activity)
			if timeout > 0 && now.Sub(s.LastSeenAt) > timeout {
				s.State = models.SessionClosed
				s.ClosedAt = now
				metrics.RecordSessionClosed(string(key.Activity), true)
				transitions = append(transitions, models.Transition{
					Kind:      models.TransitionClosed,
					Session:   *s,
					SweptIdle: true,
				})
				logging.Info().
					Str("session", key.String()).
					Dur("idle", now.Sub(s.LastSeenAt)).
					Msg("idle session closed by sweep")
			}

		case models.SessionClosed:
			if now.Sub(s.ClosedAt) > m.cfg.ReopenWindow+m.cfg.ClosedRetention {
				delete(m.sessions, key)
				for sid, k := range m.aliases {
					if k == key {
						delete(m.aliases, sid)
					}
				}
			}
		}
	}

	return transitions
}

func (m *Manager) idleTimeout(activity models.ActivityKind) time.Duration {
	switch activity {
	case models.ActivityChannel:
		return m.cfg.ChannelIdleTimeout
	case models.ActivityVOD:
		return m.cfg.VODIdleTimeout
	default:
		return 0
	}
}

// OpenCount returns the number of open sessions for one activity kind.
func (m *Manager) OpenCount(activity models.ActivityKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, s := range m.sessions {
		if s.State == models.SessionOpen && key.Activity == activity {
			count++
		}
	}
	return count
}

// Counts returns open session counts per activity kind.
func (m *Manager) Counts() map[models.ActivityKind]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[models.ActivityKind]int)
	for key, s := range m.sessions {
		if s.State == models.SessionOpen {
			counts[key.Activity]++
		}
	}
	return counts
}

// Snapshot returns copies of all tracked sessions, for the diagnostics API.
func (m *Manager) Snapshot() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
