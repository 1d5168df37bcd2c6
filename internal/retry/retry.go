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

// Package retry provides polling helpers
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted is returned by WithRetry when every attempt asked to
// be retried.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be run again
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Poll runs op every interval until it stops asking to be retried, fails or
// ctx ends. The first attempt runs immediately.
func Poll[T any](ctx context.Context, interval time.Duration, op Operation[T]) (T, error) {
	var zero T
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, shouldRetry, err := op()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WithRetry runs op up to maxRetries+1 times, waiting delay between
// attempts.
func WithRetry[T any](ctx context.Context, maxRetries int, delay time.Duration, op Operation[T]) (T, error) {
	var zero T
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, shouldRetry, err := op()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, ErrRetriesExhausted
}
