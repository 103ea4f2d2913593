// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// slack posts to a Slack incoming webhook.
type slack struct {
	webhookURL string
	httpc      *http.Client
}

func newSlack(cfg config.SlackConfig, httpc *http.Client) (*slack, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("slack: webhook_url is required")
	}
	return &slack{webhookURL: cfg.WebhookURL, httpc: httpc}, nil
}

func (s *slack) Name() string { return "slack" }

type slackAttachment struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

func (s *slack) Send(ctx context.Context, payload models.AlertPayload) error {
	body, err := json.Marshal(map[string]any{
		"text": payload.Title,
		"attachments": []slackAttachment{{
			Title:    payload.Title,
			Text:     payload.Body,
			ImageURL: payload.ImageURL,
		}},
	})
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return postJSON(ctx, s.httpc, s.Name(), s.webhookURL, body)
}
