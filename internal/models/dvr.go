// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package models defines the domain types shared across DVRWatch: raw and
// classified events, sessions and transitions, alert payloads, and the
// subset of the Channels DVR HTTP API that the metadata caches consume.
package models

import "time"

// Channel is one entry from GET /api/v1/channels.
type Channel struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
	HD      bool   `json:"hd,omitempty"`
}

// Program is one guide entry, flattened from the XMLTV feed at
// GET /devices/ANY/guide/xmltv. Times are already in the server zone.
type Program struct {
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IconURL     string    `json:"icon_url,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// Airing describes what a recording job captures.
type Airing struct {
	Title         string   `json:"Title"`
	EpisodeTitle  string   `json:"EpisodeTitle,omitempty"`
	Summary       string   `json:"Summary,omitempty"`
	Image         string   `json:"Image,omitempty"`
	Channel       string   `json:"Channel,omitempty"`
	Genres        []string `json:"Genres,omitempty"`
	SeasonNumber  int      `json:"SeasonNumber,omitempty"`
	EpisodeNumber int      `json:"EpisodeNumber,omitempty"`
}

// Job is one entry from GET /api/v1/jobs: a scheduled or running recording.
type Job struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StartTime     int64   `json:"start_time"`
	Duration      float64 `json:"duration"`
	ChannelNumber string  `json:"channel_number,omitempty"`
	FileID        string  `json:"file_id,omitempty"`
	Airing        *Airing `json:"airing,omitempty"`
}

// StartsAt returns the scheduled start as a time.Time.
func (j Job) StartsAt() time.Time {
	return time.Unix(j.StartTime, 0)
}

// Recording is one entry from GET /api/v1/recordings/{id}: a finished or
// in-progress recording file.
type Recording struct {
	ID            string  `json:"id"`
	JobID         string  `json:"job_id,omitempty"`
	Title         string  `json:"title"`
	EpisodeTitle  string  `json:"episode_title,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	ChannelNumber string  `json:"channel_number,omitempty"`
	Duration      float64 `json:"duration"`
	CreatedAt     int64   `json:"created_at,omitempty"`
	Completed     bool    `json:"completed,omitempty"`
	Cancelled     bool    `json:"cancelled,omitempty"`
}

// VODItem is one library entry from GET /api/v1/all, used to enrich
// video-on-demand playback alerts.
type VODItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	EpisodeTitle  string   `json:"episode_title,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Duration      float64  `json:"duration"`
	ContentRating string   `json:"content_rating,omitempty"`
	ReleaseYear   int      `json:"release_year,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Cast          []string `json:"cast,omitempty"`
}

// DiskInfo is the storage section of GET /dvr.
type DiskInfo struct {
	FreeBytes  uint64 `json:"free"`
	TotalBytes uint64 `json:"total"`
	UsedBytes  uint64 `json:"used"`
	Path       string `json:"path,omitempty"`
}

// FreePercent returns the free space percentage, or 0 for an empty disk.
func (d DiskInfo) FreePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.FreeBytes) / float64(d.TotalBytes) * 100.0
}

// DVRStatus is the GET /dvr response envelope.
type DVRStatus struct {
	Disk DiskInfo `json:"disk"`
}
