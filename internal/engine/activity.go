// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package engine

import (
	"sync"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// defaultActivityCapacity bounds the in-memory activity feed.
const defaultActivityCapacity = 256

// Recorder is a bounded ring of recent alert activity, newest first. It
// backs the activity API and the dashboard feed; it is not durable storage.
type Recorder struct {
	mu      sync.RWMutex
	records []models.ActivityRecord
	next    int
	full    bool
}

// NewRecorder creates a recorder holding up to capacity records. A
// non-positive capacity uses the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultActivityCapacity
	}
	return &Recorder{records: make([]models.ActivityRecord, capacity)}
}

// Add appends one record, evicting the oldest when full.
func (r *Recorder) Add(record models.ActivityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = record
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything held.
func (r *Recorder) Recent(limit int) []models.ActivityRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.size()
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.ActivityRecord, 0, limit)
	idx := r.next - 1
	for i := 0; i < limit; i++ {
		if idx < 0 {
			idx += len(r.records)
		}
		out = append(out, r.records[idx])
		idx--
	}
	return out
}

// Len returns the number of records held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size()
}

func (r *Recorder) size() int {
	if r.full {
		return len(r.records)
	}
	return r.next
}

// Clear empties the feed.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.full = false
}
