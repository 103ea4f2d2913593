// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package classifier

import (
	"net"
	"regexp"
	"strings"
)

// Channels DVR activity values look like:
//
//	Watching ch7.1 WABC-DT from Living Room (192.168.1.50): TVE (1080i)
//	Watching ch1017 FS1 from 192.168.1.100
//
// and VOD values like:
//
//	Watching The Movie from Den at 0:44:50
var (
	channelNumberRe = regexp.MustCompile(`(?i)ch(?:annel)?\s*(\d+\.\d+|\d+)`)
	channelNameRe   = regexp.MustCompile(`(?i)ch(?:annel)?\s*(?:\d+\.\d+|\d+)\s+([^()]+?)\s+from`)
	resolutionRe    = regexp.MustCompile(`(\d+[pi])`)
	fromRe          = regexp.MustCompile(`from\s+([^:()]+)`)
	parenIPRe       = regexp.MustCompile(`\(([\d.]+)\)`)
	fileIDRe        = regexp.MustCompile(`file-?(\d+)`)
	tunerHexRe      = regexp.MustCompile(`(?i)^[0-9A-F]+$`)
)

// isIPAddress reports whether s parses as an IPv4 or IPv6 address.
func isIPAddress(s string) bool {
	return net.ParseIP(s) != nil
}

// extractChannelNumber returns the channel number ("7.1", "1017") from an
// activity value, or "".
func extractChannelNumber(value string) string {
	m := channelNumberRe.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractChannelName returns the channel call sign between the channel
// number and "from", or "".
func extractChannelName(value string) string {
	m := channelNameRe.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractResolution returns the video resolution ("1080i", "720p"), or "".
func extractResolution(value string) string {
	m := resolutionRe.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractDeviceName returns the device name after "from", excluding bare
// IP addresses.
func extractDeviceName(value string) string {
	m := fromRe.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	// VOD values continue with " at H:MM:SS" after the device.
	if i := strings.Index(name, " at "); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if name == "" || isIPAddress(name) {
		return ""
	}
	return name
}

// extractIPAddress returns the client IP, preferring the parenthetical
// form over a bare "from <ip>".
func extractIPAddress(value string) string {
	if m := parenIPRe.FindStringSubmatch(value); m != nil {
		if ip := strings.TrimSpace(m[1]); isIPAddress(ip) {
			return ip
		}
	}
	if m := fromRe.FindStringSubmatch(value); m != nil {
		if ip := strings.TrimSpace(m[1]); isIPAddress(ip) {
			return ip
		}
	}
	return ""
}

// extractSource derives the stream source from a session name like
// 6-stream-TVE_hulu-... or 6-stream-1A2B3C.
func extractSource(sessionID string) string {
	parts := strings.Split(sessionID, "-")
	if len(parts) < 3 || !strings.Contains(parts[1], "stream") {
		return ""
	}

	sourceType := parts[2]
	switch {
	case strings.HasPrefix(sourceType, "M3U"):
		if len(parts) > 3 {
			return parts[3]
		}
		return "M3U"
	case strings.HasPrefix(sourceType, "TVE"):
		if len(parts) > 3 {
			provider := strings.SplitN(parts[3], "_", 2)[0]
			if provider != "" {
				return "TVE (" + strings.ToUpper(provider[:1]) + provider[1:] + ")"
			}
		}
		return "TVE"
	case tunerHexRe.MatchString(sourceType):
		return "Tuner (" + sourceType + ")"
	default:
		return sourceType
	}
}

// extractFileID returns the numeric file ID from a VOD session name like
// 6-file-1234-ip192.168.1.50, or "".
func extractFileID(name string) string {
	m := fileIDRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// isFileSession reports whether the session name identifies VOD playback.
func isFileSession(name string) bool {
	if strings.HasPrefix(name, "6-file-") || strings.HasPrefix(name, "7-file") {
		return true
	}
	return strings.HasPrefix(name, "7-") && strings.Contains(name, "file")
}

// extractProgress returns the playback position after the last " at ", or "".
func extractProgress(value string) string {
	i := strings.LastIndex(value, " at ")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(value[i+len(" at "):])
}
