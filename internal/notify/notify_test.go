// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// stubProvider fails a fixed number of times, then succeeds.
type stubProvider struct {
	name     string
	failures int32
	err      error
	calls    int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Send(context.Context, models.AlertPayload) error {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.failures) {
		return s.err
	}
	return nil
}

func testPayload() models.AlertPayload {
	return models.AlertPayload{
		ID:        "alert-1",
		Kind:      models.KindStreamStart,
		Activity:  models.ActivityChannel,
		Title:     "Channels DVR - Watching TV",
		Body:      "📺 WABC-DT\nChannel: 7.1",
		Timestamp: time.Now(),
	}
}

func TestDispatchIsolatesProviderFailures(t *testing.T) {
	failing := &stubProvider{
		name:     "failing",
		failures: 99,
		err:      &HTTPError{Provider: "failing", Status: 400, Body: "bad request"},
	}
	healthy := &stubProvider{name: "healthy"}

	f := NewFanoutWith(time.Second, failing, healthy)
	results := f.Dispatch(context.Background(), testPayload())

	if len(results) != 2 {
		t.Fatalf("results = %d entries, want 2", len(results))
	}
	if results["failing"].Outcome != models.OutcomeFailure {
		t.Errorf("failing outcome = %v, want failure", results["failing"].Outcome)
	}
	if results["failing"].Reason == "" {
		t.Error("failing attempt missing reason")
	}
	if results["healthy"].Outcome != models.OutcomeSuccess {
		t.Errorf("healthy outcome = %v, want success", results["healthy"].Outcome)
	}
}

func TestDispatchRetriesTransientOnce(t *testing.T) {
	flaky := &stubProvider{
		name:     "flaky",
		failures: 1,
		err:      &HTTPError{Provider: "flaky", Status: 503, Body: "overloaded"},
	}

	f := NewFanoutWith(time.Second, flaky)
	results := f.Dispatch(context.Background(), testPayload())

	got := results["flaky"]
	if got.Outcome != models.OutcomeSuccess {
		t.Fatalf("outcome = %v (%s), want success after retry", got.Outcome, got.Reason)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", got.Attempts)
	}
}

func TestDispatchDoesNotRetryRejections(t *testing.T) {
	rejected := &stubProvider{
		name:     "rejected",
		failures: 99,
		err:      &HTTPError{Provider: "rejected", Status: 401, Body: "bad token"},
	}

	f := NewFanoutWith(time.Second, rejected)
	results := f.Dispatch(context.Background(), testPayload())

	got := results["rejected"]
	if got.Outcome != models.OutcomeFailure {
		t.Fatalf("outcome = %v, want failure", got.Outcome)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 4xx)", got.Attempts)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"server error", &HTTPError{Status: 500}, true},
		{"rate limited", &HTTPError{Status: 429}, true},
		{"rejected", &HTTPError{Status: 403}, false},
		{"network", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewFanoutSkipsMisconfiguredProviders(t *testing.T) {
	f := NewFanout(config.ProvidersConfig{
		Timeout:  time.Second,
		Pushover: config.PushoverConfig{Enabled: true}, // missing credentials
		Webhook:  config.WebhookConfig{Enabled: true, URL: "http://127.0.0.1:1/hook"},
	})

	names := f.Names()
	if len(names) != 1 || names[0] != "webhook" {
		t.Errorf("Names() = %v, want only the configured webhook", names)
	}
}

func TestDiscordSendsEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := newDiscord(config.DiscordConfig{WebhookURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	payload := testPayload()
	payload.ImageURL = "http://x/logo.png"
	if err := d.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("embeds = %v, want one embed", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["title"] != payload.Title {
		t.Errorf("embed title = %v", embed["title"])
	}
	if thumb, ok := embed["thumbnail"].(map[string]any); !ok || thumb["url"] != payload.ImageURL {
		t.Errorf("embed thumbnail = %v", embed["thumbnail"])
	}
}

func TestTelegramPicksPhotoMethod(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg, err := newTelegram(config.TelegramConfig{BotToken: "tok", ChatID: "42"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	tg.apiBase = srv.URL

	if err := tg.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %q, want sendMessage without artwork", path)
	}

	payload := testPayload()
	payload.ImageURL = "http://x/logo.png"
	if err := tg.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send with image: %v", err)
	}
	if path != "/bottok/sendPhoto" {
		t.Errorf("path = %q, want sendPhoto with artwork", path)
	}
}

func TestPushoverSendsMultipartFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("token"); got != "tok" {
			t.Errorf("token = %q", got)
		}
		if got := r.FormValue("user"); got != "usr" {
			t.Errorf("user = %q", got)
		}
		if got := r.FormValue("title"); got == "" {
			t.Error("title missing")
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p, err := newPushover(config.PushoverConfig{Token: "tok", UserKey: "usr"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	p.endpoint = srv.URL

	if err := p.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestWebhookPostsFullPayload(t *testing.T) {
	var got models.AlertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	wh, err := newWebhook(config.WebhookConfig{URL: srv.URL, Method: "put"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	payload := testPayload()
	if err := wh.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ID != payload.ID || got.Title != payload.Title {
		t.Errorf("delivered payload = %+v", got)
	}
}

func TestEmailBuildsRFCMessage(t *testing.T) {
	e, err := newEmail(config.EmailConfig{
		Host: "smtp.example.com",
		From: "dvr@example.com",
		To:   []string{"a@example.com", "b@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	e.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := e.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q, want default port 587", gotAddr)
	}
	if gotFrom != "dvr@example.com" || len(gotTo) != 2 {
		t.Errorf("envelope = %q -> %v", gotFrom, gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{
		"From: dvr@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Channels DVR - Watching TV\r\n",
		"\r\n\r\n📺 WABC-DT",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
