// go-nfcsession
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcsession.
//
// go-nfcsession is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcsession is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcsession; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package nfcsession

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Strategy runs one kind of job against the radio.
type Strategy interface {
	Name() string
	CanHandle(job Job) bool
	// Execute runs job to completion. Loop strategies return once sm
	// signals a stop, the context is done or an unrecoverable error occurs.
	Execute(ctx context.Context, job Job, sm *StateMachine) error
}

// session is the driver access shared by the built-in strategies
type session struct {
	driver  RadioDriver
	metrics *Metrics
	logger  zerolog.Logger
}

// strategySet holds one instance of each built-in strategy
type strategySet struct {
	tech         *techStrategy
	techLoop     *techLoopStrategy
	tagEvent     *tagEventStrategy
	tagEventLoop *tagEventLoopStrategy
}

func newStrategySet(s *session) strategySet {
	return strategySet{
		tech:         &techStrategy{session: s},
		techLoop:     &techLoopStrategy{session: s},
		tagEvent:     &tagEventStrategy{session: s},
		tagEventLoop: &tagEventLoopStrategy{session: s},
	}
}

// forJob selects the strategy for job.
func (s strategySet) forJob(job Job) (Strategy, error) {
	switch job.(type) {
	case TechJob:
		return s.tech, nil
	case TechLoopJob:
		return s.techLoop, nil
	case TagEventJob:
		return s.tagEvent, nil
	case TagEventLoopJob:
		return s.tagEventLoop, nil
	case nil:
		return nil, ErrNoStrategyFound
	default:
		return nil, fmt.Errorf("%w: %T", ErrNoStrategyFound, job)
	}
}

// withTechnology opens a technology session, runs fn and always releases the
// radio, including when the request itself fails. The request waits on
// reqCtx; fn and the release run under ctx.
func (s *session) withTechnology(
	ctx, reqCtx context.Context,
	techs []Tech,
	opts *RequestOptions,
	fn TechFunc,
) error {
	defer s.releaseTechnology(ctx)

	if err := s.driver.RequestTechnology(reqCtx, techs, opts); err != nil {
		return fmt.Errorf("request technology: %w", err)
	}
	return fn(ctx)
}

// releaseTechnology cancels the technology request. Failures are logged and
// otherwise ignored.
func (s *session) releaseTechnology(ctx context.Context) {
	if err := s.driver.CancelTechnologyRequest(context.WithoutCancel(ctx)); err != nil {
		s.logger.Debug().Err(err).Msg("cancel technology request failed")
	}
}

// registerTagEvent installs handler and registers for tag events. The handler
// is cleared again when registration fails.
func (s *session) registerTagEvent(ctx context.Context, strategy string, opts *RequestOptions, handler TagHandler) error {
	s.driver.SetTagDiscoveredHandler(handler)
	if err := s.driver.RegisterTagEvent(ctx, opts); err != nil {
		s.driver.SetTagDiscoveredHandler(nil)
		return &SessionError{
			Strategy: strategy,
			Op:       "register tag event",
			Err:      fmt.Errorf("%w: %w", ErrRegistrationFailed, err),
		}
	}
	return nil
}

func (s *session) unregisterTagEvent(ctx context.Context) {
	if err := s.driver.UnregisterTagEvent(context.WithoutCancel(ctx)); err != nil {
		s.logger.Debug().Err(err).Msg("unregister tag event failed")
	}
}

// contextUntil returns a child of parent that is also cancelled when stop
// closes. A nil stop never closes.
func contextUntil(parent context.Context, stop <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if stop == nil {
		return ctx, cancel
	}
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func stopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
