// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package dvr

import (
	"context"
	"time"

	"github.com/tomtom215/dvrwatch/internal/cache"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// CatalogConfig sets the TTL of each metadata store.
type CatalogConfig struct {
	ChannelTTL time.Duration
	ProgramTTL time.Duration
	JobTTL     time.Duration
	VODTTL     time.Duration
}

// Catalog is the enrichment lookup layer for alert policies. Each lookup
// goes through a read-through TTL cache so a burst of events costs at most
// one upstream request per category.
//
// All lookups degrade gracefully: a failed fetch with no stale value logs
// a warning and reports not-found, and the alert goes out un-enriched.
type Catalog struct {
	channels   *cache.Store[[]models.Channel]
	guide      *cache.Store[[]models.Program]
	jobs       *cache.Store[[]models.Job]
	recordings *cache.Store[models.Recording]
	library    *cache.Store[[]models.VODItem]
}

// The lineup, guide, jobs, and library endpoints return whole collections,
// so those stores hold one entry under a fixed key.
const collectionKey = "all"

// NewCatalog creates the metadata catalog on top of a query client.
func NewCatalog(client *Client, cfg CatalogConfig) *Catalog {
	return &Catalog{
		channels: cache.New("channels", cfg.ChannelTTL,
			func(ctx context.Context, _ string) ([]models.Channel, error) {
				return client.Channels(ctx)
			}),
		guide: cache.New("guide", cfg.ProgramTTL,
			func(ctx context.Context, _ string) ([]models.Program, error) {
				return client.Guide(ctx)
			}),
		jobs: cache.New("jobs", cfg.JobTTL,
			func(ctx context.Context, _ string) ([]models.Job, error) {
				return client.Jobs(ctx)
			}),
		recordings: cache.New("recordings", cfg.VODTTL,
			func(ctx context.Context, id string) (models.Recording, error) {
				return client.RecordingByID(ctx, id)
			}),
		library: cache.New("library", cfg.VODTTL,
			func(ctx context.Context, _ string) ([]models.VODItem, error) {
				return client.Library(ctx)
			}),
	}
}

// ChannelByNumber looks up one channel in the cached lineup.
func (c *Catalog) ChannelByNumber(ctx context.Context, number string) (models.Channel, bool) {
	lineup, err := c.channels.Get(ctx, collectionKey)
	if err != nil {
		logging.Warn().Err(err).Str("channel", number).Msg("channel lookup unavailable")
		return models.Channel{}, false
	}
	for _, ch := range lineup {
		if ch.Number == number {
			return ch, true
		}
	}
	return models.Channel{}, false
}

// ProgramOn returns the guide program airing on a channel at the given
// instant.
func (c *Catalog) ProgramOn(ctx context.Context, channelID string, at time.Time) (models.Program, bool) {
	programs, err := c.guide.Get(ctx, collectionKey)
	if err != nil {
		logging.Warn().Err(err).Str("channel", channelID).Msg("guide lookup unavailable")
		return models.Program{}, false
	}
	return CurrentProgram(programs, channelID, at)
}

// JobByID looks up one scheduled recording job.
func (c *Catalog) JobByID(ctx context.Context, id string) (models.Job, bool) {
	jobs, err := c.jobs.Get(ctx, collectionKey)
	if err != nil {
		logging.Warn().Err(err).Str("job", id).Msg("job lookup unavailable")
		return models.Job{}, false
	}
	for _, j := range jobs {
		if j.ID == id {
			return j, true
		}
	}
	return models.Job{}, false
}

// RecordingByID looks up one recording file by its ID.
func (c *Catalog) RecordingByID(ctx context.Context, id string) (models.Recording, bool) {
	rec, err := c.recordings.Get(ctx, id)
	if err != nil {
		logging.Warn().Err(err).Str("recording", id).Msg("recording lookup unavailable")
		return models.Recording{}, false
	}
	return rec, true
}

// VODByID looks up one library item by its file ID.
func (c *Catalog) VODByID(ctx context.Context, id string) (models.VODItem, bool) {
	items, err := c.library.Get(ctx, collectionKey)
	if err != nil {
		logging.Warn().Err(err).Str("file", id).Msg("library lookup unavailable")
		return models.VODItem{}, false
	}
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return models.VODItem{}, false
}

// InvalidateJobs drops the cached job list. The engine calls it when a
// recording lifecycle event arrives, since the list it describes just
// changed.
func (c *Catalog) InvalidateJobs() {
	c.jobs.Delete(collectionKey)
}

// Stats returns per-store cache counters keyed by store name.
func (c *Catalog) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"channels":   c.channels.GetStats(),
		"guide":      c.guide.GetStats(),
		"jobs":       c.jobs.GetStats(),
		"recordings": c.recordings.GetStats(),
		"library":    c.library.GetStats(),
	}
}
