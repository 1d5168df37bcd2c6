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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := Poll(context.Background(), time.Millisecond, func() (int, bool, error) {
		calls++
		return calls, calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestPoll_PermanentError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	_, err := Poll(context.Background(), time.Millisecond, func() (int, bool, error) {
		calls++
		return 0, true, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPoll_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Poll(ctx, time.Millisecond, func() (int, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr    error
		name       string
		succeedAt  int
		maxRetries int
		wantCalls  int
	}{
		{name: "first attempt", succeedAt: 1, maxRetries: 3, wantCalls: 1},
		{name: "after retries", succeedAt: 3, maxRetries: 3, wantCalls: 3},
		{name: "last attempt", succeedAt: 4, maxRetries: 3, wantCalls: 4},
		{name: "exhausted", succeedAt: 10, maxRetries: 2, wantCalls: 3, wantErr: ErrRetriesExhausted},
		{name: "no retries", succeedAt: 2, maxRetries: 0, wantCalls: 1, wantErr: ErrRetriesExhausted},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			_, err := WithRetry(context.Background(), tt.maxRetries, time.Millisecond, func() (struct{}, bool, error) {
				calls++
				return struct{}{}, calls < tt.succeedAt, nil
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := WithRetry(ctx, 5, time.Hour, func() (struct{}, bool, error) {
		calls++
		return struct{}{}, true, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
