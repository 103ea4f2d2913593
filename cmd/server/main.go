// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package main is the entry point for the DVRWatch server.
//
// DVRWatch watches a Channels DVR server's event feed and turns viewing,
// recording, and disk-space activity into push notifications. It also
// serves a small HTTP API with live session state, recent alert activity,
// and a WebSocket feed for dashboards.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment variables (Koanf v2)
//  2. DVR clients: metadata API client (circuit breaker + rate limit) and SSE event connector
//  3. Metadata catalog: TTL caches over channels, guide, jobs, recordings, and the library
//  4. Session manager: the state machine that decides open/close/continuation
//  5. Alert dispatcher and notification fan-out (Pushover, Discord, Slack, Telegram, email, webhook)
//  6. Disk monitor (optional) with hysteresis on the low-space threshold
//  7. HTTP API and WebSocket hub
//
// Everything runs under a suture supervision tree in three layers, so a
// crashing delivery loop restarts without taking down the HTTP server.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables with the DVRWATCH_ prefix, a
// config.yaml file, then built-in defaults. Only dvr.host is required:
//
//	export DVRWATCH_DVR_HOST=192.168.1.50
//	export DVRWATCH_PROVIDERS_PUSHOVER_ENABLED=true
//	export DVRWATCH_PROVIDERS_PUSHOVER_TOKEN=...
//	export DVRWATCH_PROVIDERS_PUSHOVER_USER_KEY=...
//	./dvrwatch
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the feed
// connection drops, in-flight requests drain (10s timeout), and queued
// alerts are delivered before the process exits. If the DVR server stays
// unreachable past the reconnect budget, the supervision tree terminates
// and the process exits non-zero so an init system can restart it.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/dvrwatch/internal/alerts"
	"github.com/tomtom215/dvrwatch/internal/api"
	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/diskmon"
	"github.com/tomtom215/dvrwatch/internal/dvr"
	"github.com/tomtom215/dvrwatch/internal/engine"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/notify"
	"github.com/tomtom215/dvrwatch/internal/session"
	"github.com/tomtom215/dvrwatch/internal/supervisor"
	ws "github.com/tomtom215/dvrwatch/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("dvr", cfg.DVR.BaseURL()).
		Msg("Starting DVRWatch")

	// DVR metadata client and the TTL catalog over it. Enrichment is
	// best effort: a failed lookup degrades the alert, never drops it.
	client := dvr.NewClient(dvr.ClientConfig{
		BaseURL:         cfg.DVR.BaseURL(),
		Timeout:         cfg.DVR.Timeout,
		RateLimit:       cfg.DVR.RateLimit,
		Burst:           cfg.DVR.Burst,
		BreakerFailures: cfg.DVR.BreakerFailures,
	})
	catalog := dvr.NewCatalog(client, dvr.CatalogConfig{
		ChannelTTL: cfg.Cache.ChannelTTL,
		ProgramTTL: cfg.Cache.ProgramTTL,
		JobTTL:     cfg.Cache.JobTTL,
		VODTTL:     cfg.Cache.VODTTL,
	})

	connector := dvr.NewConnector(dvr.ConnectorConfig{
		BaseURL:           cfg.DVR.BaseURL(),
		ReconnectInitial:  cfg.DVR.ReconnectInitial,
		ReconnectMax:      cfg.DVR.ReconnectMax,
		ReconnectBudget:   cfg.DVR.ReconnectBudget,
		KeepAliveInterval: cfg.DVR.KeepAliveInterval,
	}, client)

	manager := session.NewManager(session.Config{
		ReopenWindow:       cfg.Sessions.ReopenWindow,
		ChannelIdleTimeout: cfg.Sessions.ChannelIdleTimeout,
		VODIdleTimeout:     cfg.Sessions.VODIdleTimeout,
		ClosedRetention:    cfg.Sessions.ClosedRetention,
	})

	dispatcher := alerts.NewDispatcher(cfg.Alerts, catalog, manager.OpenCount)

	fanout := notify.NewFanout(cfg.Providers)
	logging.Info().Strs("providers", fanout.Names()).Msg("Notification providers ready")

	hub := ws.NewHub()
	eng := engine.New(engine.Config{
		SweepInterval: cfg.Sessions.SweepInterval,
	}, connector, manager, dispatcher, fanout, catalog, engine.NewRecorder(256), hub)
	defer func() {
		if err := eng.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert queue")
		}
	}()

	// Supervision tree. The slog logger bridges zerolog to sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddPipelineService(supervisor.NewService("feed-connector", connector.Run))
	tree.AddPipelineService(supervisor.NewService("event-pipeline", eng.RunPipeline))
	tree.AddPipelineService(supervisor.NewService("session-sweeper", eng.RunSweeper))
	tree.AddPipelineService(supervisor.NewService("alert-deliverer", eng.RunDeliverer))

	tree.AddMonitoringService(supervisor.NewService("websocket-hub", hub.Run))

	var diskState api.DiskState
	if cfg.Disk.Enabled {
		monitor := diskmon.New(diskmon.Config{
			PollInterval:     cfg.Disk.PollInterval,
			PercentThreshold: cfg.Disk.PercentThreshold,
			GigabytesFree:    cfg.Disk.GigabytesFree,
			AlertCooldown:    cfg.Disk.AlertCooldown,
		}, client, dispatcher, eng.PublishDiskAlert)
		tree.AddMonitoringService(supervisor.NewService("disk-monitor", monitor.Run))
		diskState = monitor
	}

	handlers := api.NewHandlers(eng, diskState, hub, version)
	server := api.NewServer(cfg.Server, api.NewRouter(cfg.Server, handlers))
	tree.AddAPIService(supervisor.NewService("http-server", server.Run))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logging.Info().Msg("Shutdown complete")
	case errors.Is(err, suture.ErrTerminateSupervisorTree):
		reportUnstopped(tree)
		logging.Error().Err(err).Msg("Supervision tree terminated")
		os.Exit(1)
	default:
		logging.Error().Err(err).Msg("Supervision tree failed")
		os.Exit(1)
	}

	reportUnstopped(tree)
}

func reportUnstopped(tree *supervisor.Tree) {
	report, err := tree.UnstoppedServiceReport()
	if err != nil || len(report) == 0 {
		return
	}
	for _, svc := range report {
		logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
	}
}
