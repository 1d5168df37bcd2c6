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

package nfcsession_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/virtual"
	"github.com/ZaparooProject/go-nfcsession/iso15693"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

func newEngineWithTag(t *testing.T) (*nfcsession.Engine, *virtual.Radio, *virtual.Tag) {
	t.Helper()
	e, radio := newEngine(t)
	tag := virtual.NewISO15693Tag(virtual.TestEMUID)
	radio.PlaceTag(tag)
	return e, radio, tag
}

func TestNfcV_BlockRoundTrip(t *testing.T) {
	t.Parallel()

	e, radio, tag := newEngineWithTag(t)
	ctx := context.Background()

	require.NoError(t, e.WriteBlockV(ctx, 4, []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	data, err := e.ReadBlockV(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)

	require.NoError(t, e.WriteBlocksV(ctx, 5, [][]byte{{1, 1, 1, 1}, {2, 2, 2, 2}}))
	data, err = e.ReadBlocksV(ctx, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 1, 1, 1, 1, 2, 2, 2, 2}, data)

	block, err := tag.ReadBlock(6)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2}, block)

	assert.False(t, radio.TechOpen())
	assert.Equal(t, nfcsession.StateIdle, e.State())
}

func TestNfcV_TagErrors(t *testing.T) {
	t.Parallel()

	e, _, tag := newEngineWithTag(t)
	ctx := context.Background()

	_, err := e.ReadBlockV(ctx, 100)
	require.ErrorIs(t, err, iso15693.ErrReadWriteFailed)
	require.ErrorIs(t, err, nfcsession.ErrSessionFailed)

	tag.SetReadOnly()
	err = e.WriteBlockV(ctx, 0, []byte{1, 2, 3, 4})
	require.ErrorIs(t, err, iso15693.ErrReadWriteFailed)

	err = e.WriteBlocksV(ctx, 0, [][]byte{nil})
	require.ErrorIs(t, err, iso15693.ErrMissingBlockData)
}

func TestNfcV_SystemInfo(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngineWithTag(t)
	info, err := e.SystemInfoV(context.Background())
	require.NoError(t, err)

	require.NotNil(t, info.UID)
	assert.Equal(t, virtual.TestEMUID, *info.UID)
	require.NotNil(t, info.NumberOfBlocks)
	assert.Equal(t, 28, *info.NumberOfBlocks)
	assert.Equal(t, 112, info.MemorySize())
	assert.Equal(t, "EM Microelectronic", info.Manufacturer)
}

func TestNfcV_NoTagTimesOut(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.ReadBlockV(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, nfcsession.StateIdle, e.State())
}

func TestNdef_WriteAndReadText(t *testing.T) {
	t.Parallel()

	e, _, tag := newEngineWithTag(t)
	ctx := context.Background()

	require.NoError(t, e.WriteText(ctx, "**launch.system:snes", "en", ndef.UTF8, ""))

	records, err := e.ReadNdef(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	payload, err := ndef.DecodeRecord(records[0])
	require.NoError(t, err)
	assert.Equal(t, ndef.TextPayload{Text: "**launch.system:snes", Lang: "en"}, payload)

	stored, err := tag.NdefRecords()
	require.NoError(t, err)
	assert.Equal(t, records, stored)
}

func TestNdef_WriteVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		write func(ctx context.Context, e *nfcsession.Engine) error
		check func(t *testing.T, p ndef.Payload)
		name  string
	}{
		{
			name: "uri",
			write: func(ctx context.Context, e *nfcsession.Engine) error {
				return e.WriteURI(ctx, "https://zaparoo.org", "")
			},
			check: func(t *testing.T, p ndef.Payload) {
				assert.Equal(t, ndef.URIPayload{URI: "https://zaparoo.org"}, p)
			},
		},
		{
			name: "json",
			write: func(ctx context.Context, e *nfcsession.Engine) error {
				return e.WriteJSON(ctx, map[string]any{"id": 7}, "")
			},
			check: func(t *testing.T, p ndef.Payload) {
				mp, ok := p.(ndef.MimePayload)
				require.True(t, ok)
				assert.Equal(t, map[string]any{"id": float64(7)}, mp.Data)
			},
		},
		{
			name: "mime",
			write: func(ctx context.Context, e *nfcsession.Engine) error {
				return e.WriteMime(ctx, "text/plain", []byte("hi"), "")
			},
			check: func(t *testing.T, p ndef.Payload) {
				mp, ok := p.(ndef.MimePayload)
				require.True(t, ok)
				require.NotNil(t, mp.Text)
				assert.Equal(t, "hi", *mp.Text)
			},
		},
		{
			name: "external",
			write: func(ctx context.Context, e *nfcsession.Engine) error {
				return e.WriteExternal(ctx, "zaparoo.org", "game", []byte{1, 2}, "")
			},
			check: func(t *testing.T, p ndef.Payload) {
				assert.Equal(t, ndef.ExternalPayload{Type: "zaparoo.org:game", Data: []byte{1, 2}}, p)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _, _ := newEngineWithTag(t)
			ctx := context.Background()
			require.NoError(t, tt.write(ctx, e))

			result, err := e.ReadNdefFull(ctx)
			require.NoError(t, err)
			assert.Equal(t, virtual.TestEMUID, result.Tag.ID)
			require.Len(t, result.Records, 1)
			p, err := ndef.DecodeRecord(result.Records[0])
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestNdef_Errors(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngineWithTag(t)
	ctx := context.Background()

	_, err := e.ReadNdef(ctx)
	require.ErrorIs(t, err, nfcsession.ErrNoNdefMessage)

	require.ErrorIs(t, e.WriteNdef(ctx), ndef.ErrEmptyMessage)
	require.ErrorIs(t, e.WriteMime(ctx, "", []byte("x"), ""), ndef.ErrEmptyMimeType)
	require.ErrorIs(t, e.WriteExternal(ctx, "", "", nil, ""), ndef.ErrEmptyExternalType)

	long := make([]byte, 200)
	err = e.WriteMime(ctx, "application/octet-stream", long, "")
	require.ErrorIs(t, err, virtual.ErrTooLarge)
	assert.Equal(t, nfcsession.StateIdle, e.State())
}

func TestNdef_StatusAndMakeReadOnly(t *testing.T) {
	t.Parallel()

	e, _, tag := newEngineWithTag(t)
	ctx := context.Background()

	status, capacity, err := e.NdefStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, nfcsession.NdefReadWrite, status)
	assert.Equal(t, 112, capacity)

	require.NoError(t, e.MakeReadOnly(ctx))
	assert.True(t, tag.ReadOnly())

	status, _, err = e.NdefStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, nfcsession.NdefReadOnly, status)

	err = e.WriteURI(ctx, "https://zaparoo.org", "")
	require.ErrorIs(t, err, virtual.ErrReadOnly)
}

// plainDriver hides the NDEF capability of the radio it wraps
type plainDriver struct {
	nfcsession.RadioDriver
}

func TestNdef_DriverWithoutNdef(t *testing.T) {
	t.Parallel()

	_, radio := newEngine(t)
	e, err := nfcsession.New(plainDriver{radio})
	require.NoError(t, err)

	_, err = e.ReadNdef(context.Background())
	require.ErrorIs(t, err, nfcsession.ErrNdefUnsupported)
	require.ErrorIs(t, e.WriteURI(context.Background(), "https://zaparoo.org", ""), nfcsession.ErrNdefUnsupported)
	assert.Equal(t, 0, radio.Stats().Requests)
}

func TestGetTag(t *testing.T) {
	t.Parallel()

	e, _, tag := newEngineWithTag(t)
	require.NoError(t, tag.SetNdef(ndef.URIRecord("https://zaparoo.org", "")))

	got, err := e.GetTag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, virtual.TestEMUID, got.ID)
	assert.Len(t, got.NdefMessage, 1)

	fits, known, err := ndef.WillFit(got, ndef.URIRecord("https://zaparoo.org/launch", ""))
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, fits)
}

func TestTransceive_NfcA(t *testing.T) {
	t.Parallel()

	e, _, tag := newEngineWithTag(t)
	tag.SetTechs(nfcsession.TechNfcA, nfcsession.TechNfcV)

	resp, err := e.Transceive(context.Background(), iso15693.BuildGetSystemInfo(tag.UIDBytes()))
	require.NoError(t, err)
	info, err := iso15693.ParseSystemInfo(resp)
	require.NoError(t, err)
	require.NotNil(t, info.UID)
	assert.Equal(t, virtual.TestEMUID, *info.UID)
}

func TestOps_BusyDuringLoop(t *testing.T) {
	t.Parallel()

	e, radio, _ := newEngineWithTag(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	done := runAsync(func() error {
		return e.StartTechLoop(context.Background(), nfcV, func(context.Context) error {
			once.Do(func() { close(entered) })
			<-release
			return nil
		}, nil, nil)
	})
	<-entered

	_, err := e.ReadBlockV(context.Background(), 0)
	require.ErrorIs(t, err, nfcsession.ErrSessionBusy)

	e.Stop()
	_, err = e.ReadNdef(context.Background())
	require.ErrorIs(t, err, nfcsession.ErrSessionBusy, "operations are not parked in the retry slot")

	close(release)
	require.NoError(t, waitDone(t, done))
	assert.False(t, radio.TechOpen())
}
