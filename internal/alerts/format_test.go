// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Minute, "1h 30m"},
		{3725 * time.Second, "1h 2m"},
		{45 * time.Minute, "45m 0s"},
		{50 * time.Second, "0m 50s"},
		{0, "0m 0s"},
		{-time.Minute, "0m 0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		b    uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{50 << 30, "50.0 GB"},
		{uint64(1.5 * float64(1<<40)), "1.5 TB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.b); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.b, got, tt.want)
		}
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"0:44:50", 44*time.Minute + 50*time.Second, true},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"44:50", 44*time.Minute + 50*time.Second, true},
		{"garbage", 0, false},
		{"1:2:3:4", 0, false},
		{"", 0, false},
		{"-1:00", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseProgress(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseProgress(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatterUnknownZoneFallsBack(t *testing.T) {
	f := NewFormatter("Not/AZone")
	if f.loc != time.Local {
		t.Error("unknown zone did not fall back to host zone")
	}

	utc := NewFormatter("UTC")
	at := time.Date(2026, 3, 1, 21, 5, 0, 0, time.UTC)
	if got := utc.Clock(at); got != "9:05 PM" {
		t.Errorf("Clock = %q, want 9:05 PM", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 200); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := "alpha beta gamma delta epsilon"
	got := truncate(long, 16)
	if got != "alpha beta..." {
		t.Errorf("truncate = %q, want word-boundary cut", got)
	}
}
