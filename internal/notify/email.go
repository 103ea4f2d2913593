// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/tomtom215/dvrwatch/internal/config"
	"github.com/tomtom215/dvrwatch/internal/models"
)

// email sends plain-text alerts over SMTP. Auth is used only when a
// username is configured, so unauthenticated relays on a LAN work too.
type email struct {
	addr     string
	username string
	password string
	host     string
	from     string
	to       []string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func newEmail(cfg config.EmailConfig) (*email, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("email: host, from, and to are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &email{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, port),
		username: cfg.Username,
		password: cfg.Password,
		host:     cfg.Host,
		from:     cfg.From,
		to:       cfg.To,
		send:     smtp.SendMail,
	}, nil
}

func (e *email) Name() string { return "email" }

func (e *email) Send(ctx context.Context, payload models.AlertPayload) error {
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := buildMessage(e.from, e.to, payload)

	// smtp.SendMail has no context hook; run it in a goroutine so the
	// per-attempt deadline still applies.
	done := make(chan error, 1)
	go func() {
		done <- e.send(e.addr, auth, e.from, e.to, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email: %w", ctx.Err())
	}
}

func buildMessage(from string, to []string, payload models.AlertPayload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", payload.Title)
	fmt.Fprintf(&b, "Date: %s\r\n", payload.Timestamp.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(payload.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
