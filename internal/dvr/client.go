// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package dvr talks to the Channels DVR server: a long-lived SSE connector
// for the event feed and a rate-limited, circuit-broken query client for
// the metadata API.
package dvr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// ErrUnavailable indicates the metadata API is currently unreachable,
// either because a request failed or because the circuit breaker is open.
var ErrUnavailable = errors.New("dvr: metadata api unavailable")

// ClientConfig tunes the metadata query client.
type ClientConfig struct {
	// BaseURL is the DVR server root, e.g. http://192.168.1.10:8089.
	BaseURL string

	// Timeout bounds each request.
	Timeout time.Duration

	// RateLimit caps requests per second; Burst is the bucket size.
	// A zero RateLimit disables limiting.
	RateLimit float64
	Burst     int

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerFailures uint32
}

// Client wraps the Channels DVR metadata HTTP API.
//
// All requests pass through a token bucket limiter and a circuit breaker.
// When the breaker is open, calls fail fast with ErrUnavailable instead of
// piling timed-out requests onto a struggling DVR server. Callers treat
// any error as "enrichment unavailable" and degrade gracefully.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a metadata client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	settings := gobreaker.Settings{
		Name: "dvr-metadata",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.RecordBreakerState(to.String())
		},
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// get fetches one API path and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpc.Do(req)
		metrics.RecordDVRRequest(path, time.Since(start), err == nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}

	return body, nil
}

// Channels returns the channel lineup from /api/v1/channels.
func (c *Client) Channels(ctx context.Context) ([]models.Channel, error) {
	body, err := c.get(ctx, "/api/v1/channels")
	if err != nil {
		return nil, err
	}

	var channels []models.Channel
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return channels, nil
}

// Jobs returns the scheduled recording jobs from /api/v1/jobs.
func (c *Client) Jobs(ctx context.Context) ([]models.Job, error) {
	body, err := c.get(ctx, "/api/v1/jobs")
	if err != nil {
		return nil, err
	}

	var jobs []models.Job
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

// RecordingByID returns one recording file from /api/v1/recordings/{id}.
func (c *Client) RecordingByID(ctx context.Context, id string) (models.Recording, error) {
	body, err := c.get(ctx, "/api/v1/recordings/"+id)
	if err != nil {
		return models.Recording{}, err
	}

	var rec models.Recording
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.Recording{}, fmt.Errorf("decode recording %s: %w", id, err)
	}
	return rec, nil
}

// Library returns all library items from /api/v1/all, used to enrich VOD
// playback alerts.
func (c *Client) Library(ctx context.Context) ([]models.VODItem, error) {
	body, err := c.get(ctx, "/api/v1/all")
	if err != nil {
		return nil, err
	}

	var items []models.VODItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	return items, nil
}

// DiskInfo returns the storage snapshot from /dvr.
func (c *Client) DiskInfo(ctx context.Context) (models.DiskInfo, error) {
	body, err := c.get(ctx, "/dvr")
	if err != nil {
		return models.DiskInfo{}, err
	}

	var status models.DVRStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return models.DiskInfo{}, fmt.Errorf("decode dvr status: %w", err)
	}
	return status.Disk, nil
}

// Ping probes /status. The connector uses it as a keep-alive check while
// the event feed is connected.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/status")
	return err
}

// Guide returns the flattened program guide from the XMLTV feed.
func (c *Client) Guide(ctx context.Context) ([]models.Program, error) {
	body, err := c.get(ctx, "/devices/ANY/guide/xmltv")
	if err != nil {
		return nil, err
	}

	programs, err := parseXMLTV(body)
	if err != nil {
		return nil, fmt.Errorf("decode guide: %w", err)
	}
	return programs, nil
}
