// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package supervisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/dvrwatch/internal/dvr"
	"github.com/tomtom215/dvrwatch/internal/logging"
)

// funcService adapts a run function into a supervised service.
type funcService struct {
	name string
	run  func(context.Context) error
}

// NewService wraps a run function as a named suture service. When the
// function reports the feed as unavailable past its reconnect budget,
// the error is escalated so the whole tree terminates instead of
// restarting a connector that cannot recover.
func NewService(name string, run func(ctx context.Context) error) suture.Service {
	return &funcService{name: name, run: run}
}

func (s *funcService) String() string { return s.name }

func (s *funcService) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, dvr.ErrFeedUnavailable) {
		logging.Error().Err(err).Str("service", s.name).
			Msg("feed unavailable past reconnect budget, terminating")
		return fmt.Errorf("%s: %w: %w", s.name, err, suture.ErrTerminateSupervisorTree)
	}
	return err
}
