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

package ndef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCapacity struct {
	size  int
	known bool
}

func (f fixedCapacity) NdefCapacity() (int, bool) {
	return f.size, f.known
}

func TestSpaceLeft(t *testing.T) {
	t.Parallel()

	r, err := TextRecord("hi", "en", UTF8, "")
	require.NoError(t, err)
	// 3 header bytes + type + 5 payload bytes
	const encodedLen = 9

	left, known, err := SpaceLeft(fixedCapacity{size: 48, known: true}, r)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 48-encodedLen, left)

	left, known, err = SpaceLeft(fixedCapacity{size: 4, known: true}, r)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 4-encodedLen, left)

	_, known, err = SpaceLeft(fixedCapacity{}, r)
	require.NoError(t, err)
	assert.False(t, known)

	_, known, err = SpaceLeft(nil, r)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestWillFit(t *testing.T) {
	t.Parallel()

	r, err := TextRecord("hi", "en", UTF8, "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		tag       fixedCapacity
		wantFits  bool
		wantKnown bool
	}{
		{name: "plenty of room", tag: fixedCapacity{size: 144, known: true}, wantFits: true, wantKnown: true},
		{name: "exact fit", tag: fixedCapacity{size: 9, known: true}, wantFits: true, wantKnown: true},
		{name: "one byte short", tag: fixedCapacity{size: 8, known: true}, wantFits: false, wantKnown: true},
		{name: "unknown capacity", tag: fixedCapacity{}, wantFits: false, wantKnown: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fits, known, err := WillFit(tt.tag, r)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFits, fits)
			assert.Equal(t, tt.wantKnown, known)
		})
	}

	_, _, err = WillFit(fixedCapacity{size: 10, known: true})
	require.ErrorIs(t, err, ErrEmptyMessage)
}
