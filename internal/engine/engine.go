// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package engine wires the event pipeline together: feed events are
// classified, folded into session state, filtered by the alert policies,
// queued, and fanned out to the notification providers.
//
// The queue between policy and delivery is an in-process watermill Pub/Sub
// with a single subscriber, so alerts are delivered in the order the
// policies emitted them even when a provider is slow.
package engine

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dvrwatch/internal/alerts"
	"github.com/tomtom215/dvrwatch/internal/cache"
	"github.com/tomtom215/dvrwatch/internal/classifier"
	"github.com/tomtom215/dvrwatch/internal/dvr"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
	"github.com/tomtom215/dvrwatch/internal/notify"
	"github.com/tomtom215/dvrwatch/internal/session"
)

// alertTopic is the internal queue topic between policies and delivery.
const alertTopic = "alerts"

// Broadcaster pushes live updates to dashboard clients.
type Broadcaster interface {
	BroadcastActivity(models.ActivityRecord)
	BroadcastSessions(map[models.ActivityKind]int)
}

// Config tunes the engine.
type Config struct {
	// SweepInterval is how often idle sessions are closed and expired
	// ones evicted.
	SweepInterval time.Duration

	// QueueBuffer is the alert queue depth.
	QueueBuffer int64
}

// Engine owns the event pipeline. Its Run methods are independent
// supervised services; the engine itself holds the shared state they
// operate on.
type Engine struct {
	cfg        Config
	connector  *dvr.Connector
	manager    *session.Manager
	dispatcher *alerts.Dispatcher
	fanout     *notify.Fanout
	catalog    *dvr.Catalog
	recorder   *Recorder
	hub        Broadcaster
	pubSub     *gochannel.GoChannel
}

// New creates the engine.
func New(cfg Config, connector *dvr.Connector, manager *session.Manager,
	dispatcher *alerts.Dispatcher, fanout *notify.Fanout, catalog *dvr.Catalog,
	recorder *Recorder, hub Broadcaster) *Engine {

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.QueueBuffer <= 0 {
		cfg.QueueBuffer = 256
	}

	return &Engine{
		cfg:        cfg,
		connector:  connector,
		manager:    manager,
		dispatcher: dispatcher,
		fanout:     fanout,
		catalog:    catalog,
		recorder:   recorder,
		hub:        hub,
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.QueueBuffer,
		}, newWatermillLogger()),
	}
}

// RunPipeline consumes the feed, classifies events, and routes them through
// the session manager and alert policies. It returns when the context is
// cancelled or the connector closes its event channel.
func (e *Engine) RunPipeline(ctx context.Context) error {
	events := e.connector.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-events:
			if !ok {
				return nil
			}
			e.handleRaw(ctx, raw)
		}
	}
}

func (e *Engine) handleRaw(ctx context.Context, raw models.RawEvent) {
	ev, ok := classifier.Classify(raw)
	if !ok {
		return
	}

	switch {
	case ev.Kind.IsStart() || ev.Kind.IsStop():
		transitions := e.manager.Apply(ev)
		for _, tr := range transitions {
			if payload, ok := e.dispatcher.OnTransition(ctx, tr); ok {
				e.publish(payload)
			}
		}
		if len(transitions) > 0 && e.hub != nil {
			e.hub.BroadcastSessions(e.manager.Counts())
		}

	default:
		// Recording lifecycle: the cached job list just changed.
		e.catalog.InvalidateJobs()
		if payload, ok := e.dispatcher.OnEvent(ctx, ev); ok {
			e.publish(payload)
		}
	}
}

// RunSweeper periodically closes idle sessions and evicts expired ones.
// Swept closes flow through the same policy path as feed-driven closes.
func (e *Engine) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			transitions := e.manager.Sweep(time.Now())
			for _, tr := range transitions {
				if payload, ok := e.dispatcher.OnTransition(ctx, tr); ok {
					e.publish(payload)
				}
			}
			if len(transitions) > 0 && e.hub != nil {
				e.hub.BroadcastSessions(e.manager.Counts())
			}
		}
	}
}

// RunDeliverer consumes the alert queue and fans each payload out to the
// providers, recording the outcome in the activity feed.
func (e *Engine) RunDeliverer(ctx context.Context) error {
	messages, err := e.pubSub.Subscribe(ctx, alertTopic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			e.deliver(ctx, msg)
		}
	}
}

func (e *Engine) deliver(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload models.AlertPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logging.Error().Err(err).Str("message", msg.UUID).
			Msg("dropping undecodable alert from queue")
		return
	}

	attempts := e.fanout.Dispatch(ctx, payload)
	metrics.RecordAlertDispatched(string(payload.Kind))

	record := models.ActivityRecord{
		Alert:    payload,
		Attempts: attempts,
		LoggedAt: time.Now(),
	}
	e.recorder.Add(record)
	if e.hub != nil {
		e.hub.BroadcastActivity(record)
	}
}

func (e *Engine) publish(payload models.AlertPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("alert", payload.ID).Msg("failed to encode alert")
		return
	}

	if err := e.pubSub.Publish(alertTopic, message.NewMessage(payload.ID, data)); err != nil {
		logging.Error().Err(err).Str("alert", payload.ID).Msg("failed to queue alert")
	}
}

// PublishDiskAlert queues a payload raised by the disk monitor.
func (e *Engine) PublishDiskAlert(payload models.AlertPayload) {
	e.publish(payload)
}

// TestAlert delivers a synthetic alert for one activity kind directly to
// the providers, bypassing the queue, and returns per-provider outcomes.
func (e *Engine) TestAlert(ctx context.Context, activity models.ActivityKind) (map[string]models.NotificationAttempt, error) {
	payload, err := e.dispatcher.TestAlert(activity)
	if err != nil {
		return nil, err
	}

	attempts := e.fanout.Dispatch(ctx, payload)
	record := models.ActivityRecord{
		Alert:    payload,
		Attempts: attempts,
		LoggedAt: time.Now(),
	}
	e.recorder.Add(record)
	if e.hub != nil {
		e.hub.BroadcastActivity(record)
	}
	return attempts, nil
}

// Sessions returns a snapshot of all tracked sessions.
func (e *Engine) Sessions() []models.Session {
	return e.manager.Snapshot()
}

// SessionCounts returns open session counts per activity.
func (e *Engine) SessionCounts() map[models.ActivityKind]int {
	return e.manager.Counts()
}

// RecentActivity returns up to limit recent alert records, newest first.
func (e *Engine) RecentActivity(limit int) []models.ActivityRecord {
	return e.recorder.Recent(limit)
}

// ClearActivity empties the activity feed.
func (e *Engine) ClearActivity() {
	e.recorder.Clear()
}

// ConnectionStatus reports the feed connector's state.
func (e *Engine) ConnectionStatus() dvr.Status {
	return e.connector.Status()
}

// ForceReconnect asks the connector to drop and re-establish the feed.
func (e *Engine) ForceReconnect() {
	e.connector.ForceReconnect()
}

// Providers returns the enabled notification provider names.
func (e *Engine) Providers() []string {
	return e.fanout.Names()
}

// CacheStats returns metadata cache counters keyed by store.
func (e *Engine) CacheStats() map[string]cache.Stats {
	return e.catalog.Stats()
}

// Close shuts down the alert queue after the services have stopped.
func (e *Engine) Close() error {
	return e.pubSub.Close()
}
