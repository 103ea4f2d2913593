// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// webhook posts the full alert payload as JSON to a user-supplied URL, for
// integrations DVRWatch has no native provider for.
type webhook struct {
	url    string
	method string
	httpc  *http.Client
}

func newWebhook(cfg config.WebhookConfig, httpc *http.Client) (*webhook, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook: url is required")
	}
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	if method != http.MethodPost && method != http.MethodPut {
		return nil, fmt.Errorf("webhook: unsupported method %q", cfg.Method)
	}
	return &webhook{url: cfg.URL, method: method, httpc: httpc}, nil
}

func (w *webhook) Name() string { return "webhook" }

func (w *webhook) Send(ctx context.Context, payload models.AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, w.method, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(w.httpc, w.Name(), req)
}
