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
	"io"
	"mime/multipart"
	"net/http"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/logging"
	"github.com/tomtom215/dvrwatch/internal/models"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// maxAttachmentBytes is Pushover's documented attachment size limit.
const maxAttachmentBytes = 5 << 20

// pushover posts to the Pushover messages API. When the payload carries an
// image URL the image is downloaded and attached; a failed download sends
// the alert without artwork rather than failing delivery.
type pushover struct {
	token    string
	userKey  string
	endpoint string
	httpc    *http.Client
}

func newPushover(cfg config.PushoverConfig, httpc *http.Client) (*pushover, error) {
	if cfg.Token == "" || cfg.UserKey == "" {
		return nil, errors.New("pushover: token and user_key are required")
	}
	return &pushover{
		token:    cfg.Token,
		userKey:  cfg.UserKey,
		endpoint: pushoverEndpoint,
		httpc:    httpc,
	}, nil
}

func (p *pushover) Name() string { return "pushover" }

func (p *pushover) Send(ctx context.Context, payload models.AlertPayload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"token":   p.token,
		"user":    p.userKey,
		"title":   payload.Title,
		"message": payload.Body,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("pushover: %w", err)
		}
	}

	if payload.ImageURL != "" {
		if img, err := p.fetchImage(ctx, payload.ImageURL); err != nil {
			logging.Debug().Err(err).Str("url", payload.ImageURL).
				Msg("pushover image fetch failed, sending without attachment")
		} else {
			part, err := w.CreateFormFile("attachment", "image")
			if err != nil {
				return fmt.Errorf("pushover: %w", err)
			}
			part.Write(img)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("pushover: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return doRequest(p.httpc, p.Name(), req)
}

func (p *pushover) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
}
