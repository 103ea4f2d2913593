// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package dvr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// ErrFeedUnavailable is returned by Run when the reconnect budget is
// exhausted: the event feed could not be established after the configured
// number of consecutive attempts. The supervisor treats this as fatal.
var ErrFeedUnavailable = errors.New("dvr: event feed unavailable after reconnect budget")

// ConnectorConfig tunes the SSE event feed connection.
type ConnectorConfig struct {
	// BaseURL is the DVR server root, e.g. http://192.168.1.10:8089.
	BaseURL string

	// ReconnectInitial is the first backoff delay; it doubles after each
	// consecutive failure up to ReconnectMax.
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// ReconnectBudget is the number of consecutive failed connection
	// attempts tolerated before Run returns ErrFeedUnavailable.
	ReconnectBudget int

	// KeepAliveInterval is how often the /status probe runs while
	// connected. 0 disables the probe.
	KeepAliveInterval time.Duration

	// Buffer is the event channel capacity.
	Buffer int
}

// Status is a point-in-time snapshot of the connector, surfaced on the
// diagnostics API.
type Status struct {
	Connected   bool      `json:"connected"`
	LastError   string    `json:"last_error,omitempty"`
	Reconnects  int64     `json:"reconnects"`
	LastEventAt time.Time `json:"last_event_at,omitempty"`
}

// Connector maintains one long-lived connection to the DVR event feed at
// /dvr/events/subscribe and decodes each data frame into a RawEvent.
//
// Reconnects use exponential backoff. A successful connection resets both
// the backoff and the failure budget. Protocol frames ("hello") are
// filtered here so downstream components only ever see DVR state events.
type Connector struct {
	cfg    ConnectorConfig
	httpc  *http.Client
	pinger interface {
		Ping(ctx context.Context) error
	}

	events chan models.RawEvent

	mu          sync.RWMutex
	connected   bool
	lastErr     error
	reconnects  int64
	lastEventAt time.Time

	// dropConn cancels the per-connection context; set while connected.
	dropConn context.CancelFunc
}

// NewConnector creates an event feed connector. pinger may be nil to
// disable keep-alive probing regardless of KeepAliveInterval.
func NewConnector(cfg ConnectorConfig, pinger interface {
	Ping(ctx context.Context) error
}) *Connector {
	if cfg.ReconnectInitial <= 0 {
		cfg.ReconnectInitial = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectInitial {
		cfg.ReconnectMax = 32 * time.Second
	}
	if cfg.ReconnectBudget <= 0 {
		cfg.ReconnectBudget = 12
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}

	return &Connector{
		cfg: cfg,
		// No client-level timeout: the SSE response body stays open
		// indefinitely. Connection setup is bounded per attempt.
		httpc:  &http.Client{},
		pinger: pinger,
		events: make(chan models.RawEvent, cfg.Buffer),
	}
}

// Events returns the decoded event stream. The channel is closed when Run
// returns.
func (c *Connector) Events() <-chan models.RawEvent {
	return c.events
}

// Status returns a snapshot of the connection state.
func (c *Connector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		Connected:   c.connected,
		Reconnects:  c.reconnects,
		LastEventAt: c.lastEventAt,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// ForceReconnect drops the current connection. The run loop reconnects
// with fresh backoff. No-op when not connected.
func (c *Connector) ForceReconnect() {
	c.mu.Lock()
	drop := c.dropConn
	c.mu.Unlock()

	if drop != nil {
		logging.Info().Msg("event feed reconnect forced")
		drop()
	}
}

// Run connects to the event feed and blocks, decoding events until the
// context is canceled or the reconnect budget is exhausted. It is designed
// to run under suture supervision.
func (c *Connector) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := c.cfg.ReconnectInitial
	failures := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.streamOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setDisconnected(err)
		metrics.RecordFeedReconnect()

		if errors.Is(err, errConnectFailed) {
			failures++
			if failures >= c.cfg.ReconnectBudget {
				logging.Error().
					Int("attempts", failures).
					Err(err).
					Msg("event feed reconnect budget exhausted")
				return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
			}
		} else {
			// The connection was established and later dropped;
			// the budget only counts consecutive failed connects.
			failures = 0
			backoff = c.cfg.ReconnectInitial
		}

		logging.Warn().
			Err(err).
			Dur("backoff", backoff).
			Int("consecutive_failures", failures).
			Msg("event feed disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

// errConnectFailed marks attempts that never produced a single event frame.
var errConnectFailed = errors.New("connect failed")

// streamOnce establishes one feed connection and consumes it until it
// drops or the context is canceled.
func (c *Connector) streamOnce(ctx context.Context) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(connCtx, http.MethodGet,
		c.cfg.BaseURL+"/dvr/events/subscribe", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errConnectFailed, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errConnectFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errConnectFailed, resp.StatusCode)
	}

	c.setConnected(cancel)
	logging.Info().Str("url", req.URL.String()).Msg("event feed connected")

	if c.pinger != nil && c.cfg.KeepAliveInterval > 0 {
		go c.keepAlive(connCtx, cancel)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var raw models.RawEvent
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			logging.Debug().Str("payload", payload).Err(err).Msg("undecodable feed frame dropped")
			metrics.RecordEventDropped("undecodable")
			continue
		}

		// Protocol-level greeting, not a DVR state change.
		if raw.Type == "hello" {
			continue
		}

		raw.ReceivedAt = time.Now()
		c.noteEvent(raw.ReceivedAt)
		metrics.RecordEventIngested(raw.Type)

		select {
		case c.events <- raw:
		case <-connCtx.Done():
			return connCtx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("feed read: %w", err)
	}
	return errors.New("feed closed by server")
}

// keepAlive probes /status periodically and drops the connection when the
// server stops answering, so the run loop can reconnect promptly instead
// of waiting on a silent half-open socket.
func (c *Connector) keepAlive(ctx context.Context, drop context.CancelFunc) {
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.pinger.Ping(probeCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("keep-alive probe failed, dropping feed connection")
				drop()
				return
			}
		}
	}
}

func (c *Connector) setConnected(drop context.CancelFunc) {
	c.mu.Lock()
	c.connected = true
	c.lastErr = nil
	c.dropConn = drop
	c.mu.Unlock()
	metrics.SetFeedConnected(true)
}

func (c *Connector) setDisconnected(err error) {
	c.mu.Lock()
	c.connected = false
	c.lastErr = err
	c.reconnects++
	c.dropConn = nil
	c.mu.Unlock()
	metrics.SetFeedConnected(false)
}

func (c *Connector) noteEvent(at time.Time) {
	c.mu.Lock()
	c.lastEventAt = at
	c.mu.Unlock()
}
