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

const telegramAPIBase = "https://api.telegram.org"

// telegram sends via the Telegram bot API: sendPhoto when the payload has
// artwork, sendMessage otherwise.
type telegram struct {
	botToken string
	chatID   string
	apiBase  string
	httpc    *http.Client
}

func newTelegram(cfg config.TelegramConfig, httpc *http.Client) (*telegram, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram: bot_token and chat_id are required")
	}
	return &telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  telegramAPIBase,
		httpc:    httpc,
	}, nil
}

func (t *telegram) Name() string { return "telegram" }

func (t *telegram) Send(ctx context.Context, payload models.AlertPayload) error {
	text := payload.Title + "\n\n" + payload.Body

	method := "sendMessage"
	fields := map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	}
	if payload.ImageURL != "" {
		method = "sendPhoto"
		fields = map[string]any{
			"chat_id": t.chatID,
			"photo":   payload.ImageURL,
			"caption": text,
		}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.botToken, method)
	return postJSON(ctx, t.httpc, t.Name(), url, body)
}
