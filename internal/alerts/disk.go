// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package alerts

import (
	"fmt"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// DiskLowAlert builds the low-space payload. The thresholds are included
// so the reader knows which bound tripped.
func (d *Dispatcher) DiskLowAlert(info models.DiskInfo, percentThreshold, gigabytesFree float64) models.AlertPayload {
	var b body
	b.lead(emojiDisk, "Low Disk Space")
	b.add("Free Space", fmt.Sprintf("%s (%.1f%%)", FormatBytes(info.FreeBytes), info.FreePercent()))
	b.add("Total Space", FormatBytes(info.TotalBytes))
	b.add("Threshold", fmt.Sprintf("%.0f%% or %.0f GB", percentThreshold, gigabytesFree))
	if info.Path != "" {
		b.add("Path", info.Path)
	}

	return d.newPayload(models.KindDiskStatus, titleDiskSpace, &b, "")
}

// DiskRecoveredAlert builds the payload sent once when free space climbs
// back above the thresholds.
func (d *Dispatcher) DiskRecoveredAlert(info models.DiskInfo) models.AlertPayload {
	var b body
	b.lead(emojiCompleted, "Disk Space Recovered")
	b.add("Free Space", fmt.Sprintf("%s (%.1f%%)", FormatBytes(info.FreeBytes), info.FreePercent()))
	b.add("Total Space", FormatBytes(info.TotalBytes))

	return d.newPayload(models.KindDiskStatus, titleDiskSpace, &b, "")
}
