// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package engine

import (
	"fmt"
	"testing"

	"github.com/tomtom215/dvrwatch/internal/models"
)

func record(id int) models.ActivityRecord {
	return models.ActivityRecord{Alert: models.AlertPayload{ID: fmt.Sprintf("a%d", id)}}
}

func TestRecorderNewestFirst(t *testing.T) {
	r := NewRecorder(8)
	for i := 1; i <= 3; i++ {
		r.Add(record(i))
	}

	got := r.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent = %d records, want 3", len(got))
	}
	for i, want := range []string{"a3", "a2", "a1"} {
		if got[i].Alert.ID != want {
			t.Errorf("Recent[%d] = %q, want %q", i, got[i].Alert.ID, want)
		}
	}
}

func TestRecorderEvictsOldest(t *testing.T) {
	r := NewRecorder(4)
	for i := 1; i <= 6; i++ {
		r.Add(record(i))
	}

	if r.Len() != 4 {
		t.Fatalf("Len = %d, want capacity 4", r.Len())
	}

	got := r.Recent(0)
	for i, want := range []string{"a6", "a5", "a4", "a3"} {
		if got[i].Alert.ID != want {
			t.Errorf("Recent[%d] = %q, want %q", i, got[i].Alert.ID, want)
		}
	}
}

func TestRecorderLimitAndClear(t *testing.T) {
	r := NewRecorder(8)
	for i := 1; i <= 5; i++ {
		r.Add(record(i))
	}

	if got := r.Recent(2); len(got) != 2 || got[0].Alert.ID != "a5" {
		t.Errorf("Recent(2) = %v", got)
	}

	r.Clear()
	if r.Len() != 0 || len(r.Recent(0)) != 0 {
		t.Error("Clear did not empty the feed")
	}

	// Reusable after clear.
	r.Add(record(9))
	if got := r.Recent(0); len(got) != 1 || got[0].Alert.ID != "a9" {
		t.Errorf("post-clear Recent = %v", got)
	}
}
