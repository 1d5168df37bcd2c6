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
)

const (
	techStrategyName     = "TechOnce"
	techLoopStrategyName = "TechLoop"
)

// techStrategy runs a single technology session
type techStrategy struct {
	*session
}

func (*techStrategy) Name() string { return techStrategyName }

func (*techStrategy) CanHandle(job Job) bool {
	_, ok := job.(TechJob)
	return ok
}

func (s *techStrategy) Execute(ctx context.Context, job Job, _ *StateMachine) error {
	j, ok := job.(TechJob)
	if !ok {
		return fmt.Errorf("%w: %s cannot run %T", ErrStrategyMismatch, s.Name(), job)
	}

	if err := s.withTechnology(ctx, ctx, j.Techs, j.Options, j.OnTechnology); err != nil {
		return sessionFailed(s.Name(), "technology", err)
	}
	if j.AfterTechnology != nil {
		if err := j.AfterTechnology(ctx); err != nil {
			return sessionFailed(s.Name(), "after technology", err)
		}
	}
	return nil
}

// techLoopStrategy repeats technology sessions until stopped
type techLoopStrategy struct {
	*session
}

func (*techLoopStrategy) Name() string { return techLoopStrategyName }

func (*techLoopStrategy) CanHandle(job Job) bool {
	_, ok := job.(TechLoopJob)
	return ok
}

func (s *techLoopStrategy) Execute(ctx context.Context, job Job, sm *StateMachine) error {
	j, ok := job.(TechLoopJob)
	if !ok {
		return fmt.Errorf("%w: %s cannot run %T", ErrStrategyMismatch, s.Name(), job)
	}

	stop := sm.Stopping()
	// a pending request is abandoned as soon as a stop is requested
	reqCtx, cancel := contextUntil(ctx, stop)
	defer cancel()

	for {
		if stopRequested(stop) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.withTechnology(ctx, reqCtx, j.Techs, j.Options, j.OnTechnology)
		if err != nil {
			if stopRequested(stop) {
				s.logger.Debug().Err(err).Msg("technology loop ended while stopping")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			switch {
			case IsUserCancel(err):
				s.logger.Info().Err(err).Msg("technology request cancelled by user, continuing")
				continue
			case IsAlreadyStarted(err):
				s.logger.Warn().Err(err).Msg("technology already started, releasing and continuing")
				s.releaseTechnology(ctx)
				continue
			default:
				s.logger.Error().Err(err).Msg("technology loop failed")
				return sessionFailed(s.Name(), "technology", err)
			}
		}

		s.metrics.loopIteration(KindTechLoop)

		if j.AfterTechnology != nil {
			if err := j.AfterTechnology(ctx); err != nil {
				return sessionFailed(s.Name(), "after technology", err)
			}
		}
	}
}
