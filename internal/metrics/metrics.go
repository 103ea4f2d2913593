// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package metrics provides Prometheus instrumentation for DVRWatch:
// event feed health, classification throughput, session lifecycle, alert
// dispatch, provider delivery outcomes, cache efficiency, and disk polls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event feed metrics
	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dvrwatch_feed_connected",
			Help: "Whether the DVR event feed is currently connected (1) or not (0)",
		},
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dvrwatch_feed_reconnects_total",
			Help: "Total number of event feed reconnect cycles",
		},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_events_ingested_total",
			Help: "Total raw events decoded from the DVR event feed",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_events_dropped_total",
			Help: "Total events dropped before classification",
		},
		[]string{"reason"},
	)

	// Classifier metrics
	EventsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_events_classified_total",
			Help: "Total domain events produced by the classifier",
		},
		[]string{"kind"},
	)

	// Session metrics
	SessionsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_sessions_opened_total",
			Help: "Total sessions opened",
		},
		[]string{"activity"},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_sessions_closed_total",
			Help: "Total sessions closed",
		},
		[]string{"activity", "swept"},
	)

	OpenSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dvrwatch_open_sessions",
			Help: "Current number of open sessions",
		},
		[]string{"activity"},
	)

	// Alert metrics
	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_alerts_dispatched_total",
			Help: "Total alert payloads handed to the notification fan-out",
		},
		[]string{"kind"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_alerts_suppressed_total",
			Help: "Total alerts suppressed by cooldown or policy toggles",
		},
		[]string{"kind", "reason"},
	)

	// Provider metrics
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_provider_attempts_total",
			Help: "Total provider delivery attempts by terminal outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dvrwatch_provider_duration_seconds",
			Help:    "Provider delivery duration in seconds, including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// Metadata API metrics
	DVRRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dvrwatch_dvr_request_duration_seconds",
			Help:    "Duration of Channels DVR metadata API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "success"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dvrwatch_breaker_state",
			Help: "Metadata client circuit breaker state (1 for the active state)",
		},
		[]string{"state"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_cache_hits_total",
			Help: "Total metadata cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_cache_misses_total",
			Help: "Total metadata cache misses",
		},
		[]string{"cache"},
	)

	// Disk monitor metrics
	DiskPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dvrwatch_disk_polls_total",
			Help: "Total disk space polls",
		},
	)

	DiskFreePercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dvrwatch_disk_free_percent",
			Help: "Free disk space percentage from the last poll",
		},
	)

	DiskFreeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dvrwatch_disk_free_bytes",
			Help: "Free disk space in bytes from the last poll",
		},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dvrwatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dvrwatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dvrwatch_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)
)

// SetFeedConnected records the event feed connection state.
func SetFeedConnected(connected bool) {
	if connected {
		FeedConnected.Set(1)
	} else {
		FeedConnected.Set(0)
	}
}

// RecordFeedReconnect increments the reconnect counter.
func RecordFeedReconnect() {
	FeedReconnects.Inc()
}

// RecordEventIngested counts one decoded feed event.
func RecordEventIngested(eventType string) {
	EventsIngested.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts one dropped event with its drop reason.
func RecordEventDropped(reason string) {
	EventsDropped.WithLabelValues(reason).Inc()
}

// RecordEventClassified counts one classified domain event.
func RecordEventClassified(kind string) {
	EventsClassified.WithLabelValues(kind).Inc()
}

// RecordSessionOpened counts a session open and bumps the gauge.
func RecordSessionOpened(activity string) {
	SessionsOpened.WithLabelValues(activity).Inc()
	OpenSessions.WithLabelValues(activity).Inc()
}

// RecordSessionClosed counts a session close and drops the gauge.
func RecordSessionClosed(activity string, swept bool) {
	sweptLabel := "false"
	if swept {
		sweptLabel = "true"
	}
	SessionsClosed.WithLabelValues(activity, sweptLabel).Inc()
	OpenSessions.WithLabelValues(activity).Dec()
}

// RecordAlertDispatched counts one payload handed to the fan-out.
func RecordAlertDispatched(kind string) {
	AlertsDispatched.WithLabelValues(kind).Inc()
}

// RecordAlertSuppressed counts one alert suppressed before dispatch.
func RecordAlertSuppressed(kind, reason string) {
	AlertsSuppressed.WithLabelValues(kind, reason).Inc()
}

// RecordProviderAttempt records one terminal provider outcome.
func RecordProviderAttempt(provider, outcome string, duration time.Duration) {
	ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDVRRequest records one metadata API request.
func RecordDVRRequest(path string, duration time.Duration, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	DVRRequestDuration.WithLabelValues(path, label).Observe(duration.Seconds())
}

// RecordBreakerState marks the active circuit breaker state.
func RecordBreakerState(state string) {
	for _, s := range []string{"closed", "half-open", "open"} {
		if s == state {
			BreakerState.WithLabelValues(s).Set(1)
		} else {
			BreakerState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordCacheHit counts one cache hit for the named store.
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts one cache miss for the named store.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordDiskPoll records one disk poll result.
func RecordDiskPoll(freePercent float64, freeBytes uint64) {
	DiskPolls.Inc()
	DiskFreePercent.Set(freePercent)
	DiskFreeBytes.Set(float64(freeBytes))
}

// RecordAPIRequest records one HTTP API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
