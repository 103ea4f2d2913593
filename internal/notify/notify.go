// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package notify delivers alert payloads to the configured providers.
//
// Providers are independent: each delivery gets its own goroutine, its own
// timeout, and one retry on transient failure. A provider that fails, even
// permanently, never blocks or cancels the others; the fan-out reports
// per-provider outcomes and the engine logs them.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/metrics"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// Provider delivers one payload to one destination.
type Provider interface {
	Name() string
	Send(ctx context.Context, payload models.AlertPayload) error
}

// HTTPError is a non-2xx response from a provider endpoint.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// IsTransient reports whether a delivery error is worth one retry: server
// errors, rate limiting, and timeouts qualify; a 4xx rejection or an
// explicit cancellation does not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 || httpErr.Status == http.StatusTooManyRequests
	}
	// Network-level failures (refused, reset, deadline) are transient.
	return true
}

// Fanout delivers each payload to every enabled provider concurrently.
type Fanout struct {
	providers []Provider
	timeout   time.Duration
	retry     retrypolicy.RetryPolicy[any]
}

// retryBackoff is the delay before the single retry attempt.
const retryBackoff = 2 * time.Second

// NewFanout builds the fan-out from configuration. Providers that are
// enabled but missing credentials are skipped with a warning; they never
// fail startup.
func NewFanout(cfg config.ProvidersConfig) *Fanout {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}

	var providers []Provider
	add := func(p Provider, err error) {
		if err != nil {
			logging.Warn().Err(err).Msg("notification provider disabled")
			return
		}
		if p != nil {
			providers = append(providers, p)
			logging.Info().Str("provider", p.Name()).Msg("notification provider enabled")
		}
	}

	if cfg.Pushover.Enabled {
		add(newPushover(cfg.Pushover, httpc))
	}
	if cfg.Discord.Enabled {
		add(newDiscord(cfg.Discord, httpc))
	}
	if cfg.Slack.Enabled {
		add(newSlack(cfg.Slack, httpc))
	}
	if cfg.Telegram.Enabled {
		add(newTelegram(cfg.Telegram, httpc))
	}
	if cfg.Email.Enabled {
		add(newEmail(cfg.Email))
	}
	if cfg.Webhook.Enabled {
		add(newWebhook(cfg.Webhook, httpc))
	}

	if len(providers) == 0 {
		logging.Warn().Msg("no notification providers enabled, alerts will only reach the activity feed")
	}

	return &Fanout{
		providers: providers,
		timeout:   timeout,
		retry: retrypolicy.Builder[any]().
			HandleIf(func(_ any, err error) bool { return IsTransient(err) }).
			WithDelay(retryBackoff).
			WithMaxRetries(1).
			Build(),
	}
}

// NewFanoutWith builds a fan-out over explicit providers, for tests.
func NewFanoutWith(timeout time.Duration, providers ...Provider) *Fanout {
	f := NewFanout(config.ProvidersConfig{Timeout: timeout})
	f.providers = providers
	return f
}

// Names returns the enabled provider names.
func (f *Fanout) Names() []string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return names
}

// Dispatch delivers the payload to every provider and returns one attempt
// record per provider. It blocks until all deliveries reach a terminal
// outcome.
func (f *Fanout) Dispatch(ctx context.Context, payload models.AlertPayload) map[string]models.NotificationAttempt {
	results := make(map[string]models.NotificationAttempt, len(f.providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range f.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			attempt := f.deliver(ctx, p, payload)
			mu.Lock()
			results[p.Name()] = attempt
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return results
}

func (f *Fanout) deliver(ctx context.Context, p Provider, payload models.AlertPayload) models.NotificationAttempt {
	start := time.Now()
	attempts := 0

	err := failsafe.NewExecutor[any](f.retry).WithContext(ctx).RunWithExecution(
		func(exec failsafe.Execution[any]) error {
			attempts = exec.Attempts()
			attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			return p.Send(attemptCtx, payload)
		})

	elapsed := time.Since(start)
	attempt := models.NotificationAttempt{
		Provider: p.Name(),
		Attempts: attempts,
		Elapsed:  elapsed,
	}

	if err != nil {
		attempt.Outcome = models.OutcomeFailure
		attempt.Reason = err.Error()
		metrics.RecordProviderAttempt(p.Name(), string(models.OutcomeFailure), elapsed)
		logging.Error().
			Str("provider", p.Name()).
			Str("alert", payload.ID).
			Int("attempts", attempts).
			Err(err).
			Msg("notification delivery failed")
		return attempt
	}

	attempt.Outcome = models.OutcomeSuccess
	metrics.RecordProviderAttempt(p.Name(), string(models.OutcomeSuccess), elapsed)
	logging.Debug().
		Str("provider", p.Name()).
		Str("alert", payload.ID).
		Dur("elapsed", elapsed).
		Msg("notification delivered")
	return attempt
}

// postJSON sends a JSON body and maps any non-2xx response to *HTTPError.
func postJSON(ctx context.Context, httpc *http.Client, provider, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(httpc, provider, req)
}

func doRequest(httpc *http.Client, provider string, req *http.Request) error {
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &HTTPError{Provider: provider, Status: resp.StatusCode, Body: string(snippet)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
