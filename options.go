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
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option is a functional option for configuring an Engine
type Option func(*Engine) error

// WithLogger sets the logger used by the engine and its strategies
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics records job metrics into m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithRequestOptions sets the request options used by jobs that carry none
func WithRequestOptions(opts *RequestOptions) Option {
	return func(e *Engine) error {
		if opts == nil {
			e.defaults = nil
			return nil
		}
		c := *opts
		e.defaults = &c
		return nil
	}
}

// WithIDGenerator replaces the job ID generator used for log correlation
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) error {
		if gen == nil {
			return errors.New("id generator cannot be nil")
		}
		e.newID = gen
		return nil
	}
}

func newJobID() string {
	return uuid.New().String()
}
