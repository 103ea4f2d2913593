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

// discord posts an embed to a Discord webhook.
type discord struct {
	webhookURL string
	httpc      *http.Client
}

func newDiscord(cfg config.DiscordConfig, httpc *http.Client) (*discord, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("discord: webhook_url is required")
	}
	return &discord{webhookURL: cfg.WebhookURL, httpc: httpc}, nil
}

func (d *discord) Name() string { return "discord" }

type discordEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Thumbnail   *discordThumbnail `json:"thumbnail,omitempty"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

func (d *discord) Send(ctx context.Context, payload models.AlertPayload) error {
	embed := discordEmbed{
		Title:       payload.Title,
		Description: payload.Body,
	}
	if payload.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: payload.ImageURL}
	}

	body, err := json.Marshal(map[string]any{
		"embeds": []discordEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return postJSON(ctx, d.httpc, d.Name(), d.webhookURL, body)
}
