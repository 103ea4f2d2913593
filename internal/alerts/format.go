// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package alerts turns session transitions and recording lifecycle events
// into notification payloads, applying per-category policies, cooldowns,
// and metadata enrichment.
package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/dvrwatch/internal/logging"
)

// Alert titles, one per category. Providers that support rich formatting
// render the title separately from the body.
const (
	titleWatchingTV         = "Channels DVR - Watching TV"
	titlePlayingVideo       = "Channels DVR - Playing Video"
	titleRecordingScheduled = "Channels DVR - Recording Scheduled"
	titleRecordingStarted   = "Channels DVR - Recording Started"
	titleRecordingCompleted = "Channels DVR - Recording Completed"
	titleRecordingCancelled = "Channels DVR - Recording Cancelled"
	titleDiskSpace          = "Channels DVR - Disk Space"
)

// Body-leading emoji per category.
const (
	emojiChannel   = "📺"
	emojiVOD       = "🎬"
	emojiScheduled = "📅"
	emojiStarted   = "🔴"
	emojiCompleted = "✅"
	emojiCancelled = "🚫"
	emojiDisk      = "⚠️"
)

// Formatter renders alert bodies. It holds the timezone used for any
// timestamps included in alert text.
type Formatter struct {
	loc *time.Location
}

// NewFormatter creates a formatter for the given IANA zone. An empty or
// unknown zone falls back to the host zone with a warning.
func NewFormatter(timezone string) *Formatter {
	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			logging.Warn().Str("timezone", timezone).Err(err).
				Msg("unknown alert timezone, using host zone")
		} else {
			loc = l
		}
	}
	return &Formatter{loc: loc}
}

// Clock renders a timestamp in the configured zone.
func (f *Formatter) Clock(t time.Time) string {
	return t.In(f.loc).Format("3:04 PM")
}

// body builds an alert body line by line. Lines are emitted in insertion
// order; empty values are skipped so a partially enriched alert stays tidy.
type body struct {
	lines []string
}

func (b *body) lead(emoji, text string) {
	if text == "" {
		return
	}
	b.lines = append(b.lines, emoji+" "+text)
}

func (b *body) add(label, value string) {
	if value == "" {
		return
	}
	b.lines = append(b.lines, label+": "+value)
}

func (b *body) raw(line string) {
	if line == "" {
		return
	}
	b.lines = append(b.lines, line)
}

func (b *body) String() string {
	return strings.Join(b.lines, "\n")
}

// FormatDuration renders a duration as "1h 23m" above one hour and
// "4m 50s" below it.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// FormatBytes renders a byte count with a binary unit, one decimal place.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// ParseProgress converts a feed progress string ("0:44:50" or "44:50")
// to a duration. Unparseable input yields zero and false.
func ParseProgress(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}
