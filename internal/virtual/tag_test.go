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

package virtual

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/iso15693"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

func TestNewTag_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		uid       string
		blocks    int
		blockSize int
	}{
		{name: "malformed uid", uid: "XYZ", blocks: 4, blockSize: 4},
		{name: "short uid", uid: "E00401", blocks: 4, blockSize: 4},
		{name: "no blocks", uid: TestEMUID, blocks: 0, blockSize: 4},
		{name: "too many blocks", uid: TestEMUID, blocks: 257, blockSize: 4},
		{name: "no block size", uid: TestEMUID, blocks: 4, blockSize: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTag(tt.uid, tt.blocks, tt.blockSize)
			assert.Error(t, err)
		})
	}
}

func TestTag_HandleCommand_ReadWrite(t *testing.T) {
	t.Parallel()

	tag := NewISO15693Tag(TestEMUID)
	uid := tag.UIDBytes()

	resp, err := tag.HandleCommand(iso15693.BuildWriteBlock(uid, 3, []byte{1, 2, 3, 4}))
	require.NoError(t, err)
	require.NoError(t, iso15693.ParseWriteResponse(resp))

	resp, err = tag.HandleCommand(iso15693.BuildReadBlock(uid, 3))
	require.NoError(t, err)
	data, err := iso15693.ParseReadResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestTag_HandleCommand_Errors(t *testing.T) {
	t.Parallel()

	tag := NewISO15693Tag(TestEMUID)
	uid := tag.UIDBytes()

	resp, err := tag.HandleCommand(iso15693.BuildReadBlock(uid, 200))
	require.NoError(t, err)
	assert.Equal(t, BuildErrorResponse(ErrCodeBlockUnavailable), resp)

	resp, err = tag.HandleCommand(iso15693.BuildWriteBlock(uid, 0, []byte{1}))
	require.NoError(t, err)
	assert.Equal(t, BuildErrorResponse(ErrCodeWriteFailed), resp)

	resp, err = tag.HandleCommand([]byte{0x22, 0xA0})
	require.NoError(t, err)
	assert.Equal(t, BuildErrorResponse(ErrCodeNotRecognized), resp)

	other := NewISO15693Tag(TestSTUID)
	_, err = tag.HandleCommand(iso15693.BuildReadBlock(other.UIDBytes(), 0))
	require.ErrorIs(t, err, ErrNoResponse)

	tag.SetReadOnly()
	resp, err = tag.HandleCommand(iso15693.BuildWriteBlock(uid, 0, []byte{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, BuildErrorResponse(ErrCodeBlockLocked), resp)
}

func TestTag_SystemInfo(t *testing.T) {
	t.Parallel()

	tag, err := NewTag(TestEMUID, 32, 4)
	require.NoError(t, err)
	tag.DSFID = 0x01
	tag.ICReference = 0x03

	resp, err := tag.HandleCommand(iso15693.BuildGetSystemInfo(tag.UIDBytes()))
	require.NoError(t, err)
	info, err := iso15693.ParseSystemInfo(resp)
	require.NoError(t, err)

	require.NotNil(t, info.UID)
	assert.Equal(t, TestEMUID, *info.UID)
	require.NotNil(t, info.NumberOfBlocks)
	assert.Equal(t, 32, *info.NumberOfBlocks)
	require.NotNil(t, info.BlockSize)
	assert.Equal(t, 4, *info.BlockSize)
	assert.Equal(t, 128, info.MemorySize())
}

func TestTag_NdefStorage(t *testing.T) {
	t.Parallel()

	tag := NewISO15693Tag(TestEMUID)
	records, err := tag.NdefRecords()
	require.NoError(t, err)
	assert.Nil(t, records)

	rec, err := ndef.TextRecord("hello", "en", ndef.UTF8, "")
	require.NoError(t, err)
	require.NoError(t, tag.SetNdef(rec))

	records, err = tag.NdefRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	payload, err := ndef.DecodeRecord(records[0])
	require.NoError(t, err)
	assert.Equal(t, ndef.TextPayload{Text: "hello", Lang: "en"}, payload)

	first, err := tag.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, ndef.TLVMessage, first[0])
}

func TestTag_WriteNdef_TooLarge(t *testing.T) {
	t.Parallel()

	tag, err := NewTag(TestEMUID, 2, 4)
	require.NoError(t, err)

	err = tag.SetNdef(ndef.URIRecord("https://zaparoo.org/a/very/long/path", ""))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestTag_AsTag(t *testing.T) {
	t.Parallel()

	tag := NewISO15693Tag(TestEMUID)
	require.NoError(t, tag.SetNdef(ndef.URIRecord("https://zaparoo.org", "")))

	got := tag.AsTag()
	assert.Equal(t, TestEMUID, got.ID)
	assert.Equal(t, 112, got.MaxSize)
	assert.True(t, got.IsWritable)
	assert.True(t, got.HasTech(nfcsession.TechNfcV))
	require.Len(t, got.NdefMessage, 1)

	tag.SetReadOnly()
	assert.False(t, tag.AsTag().IsWritable)
}

func TestRadio_RequestTechnologyWaitsForTag(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	done := make(chan error, 1)
	go func() {
		done <- radio.RequestTechnology(context.Background(), []nfcsession.Tech{nfcsession.TechNfcV}, nil)
	}()

	select {
	case err := <-done:
		t.Fatalf("request returned before a tag was placed: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	radio.PlaceTag(NewISO15693Tag(TestEMUID))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("request did not complete")
	}
	assert.True(t, radio.TechOpen())

	err := radio.RequestTechnology(context.Background(), []nfcsession.Tech{nfcsession.TechNfcV}, nil)
	require.ErrorIs(t, err, nfcsession.ErrTechnologyAlreadyStarted)

	require.NoError(t, radio.CancelTechnologyRequest(context.Background()))
	assert.False(t, radio.TechOpen())
}

func TestRadio_RequestTechnologyHonorsContext(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	radio.PlaceTag(NewISO15693Tag(TestEMUID))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := radio.RequestTechnology(ctx, []nfcsession.Tech{nfcsession.TechIsoDep}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, radio.TechOpen())
}

func TestRadio_FailNextRequest(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	radio.PlaceTag(NewISO15693Tag(TestEMUID))
	radio.FailNextRequest(nfcsession.ErrUserCancel)

	techs := []nfcsession.Tech{nfcsession.TechNfcV}
	require.ErrorIs(t, radio.RequestTechnology(context.Background(), techs, nil), nfcsession.ErrUserCancel)
	require.NoError(t, radio.RequestTechnology(context.Background(), techs, nil))
	assert.Equal(t, 2, radio.Stats().Requests)
}

func TestRadio_Discover(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	tag := NewISO15693Tag(TestEMUID)
	assert.False(t, radio.Discover(tag), "no handler installed")

	var seen []string
	radio.SetTagDiscoveredHandler(func(t *nfcsession.Tag) { seen = append(seen, t.ID) })
	assert.False(t, radio.Discover(tag), "not registered")

	require.NoError(t, radio.RegisterTagEvent(context.Background(), nil))
	assert.True(t, radio.Discover(tag))
	assert.Equal(t, []string{TestEMUID}, seen)

	current, err := radio.GetCurrentTag(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, TestEMUID, current.ID)

	require.NoError(t, radio.UnregisterTagEvent(context.Background()))
	current, err = radio.GetCurrentTag(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestRadio_NdefWithoutSession(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	radio.PlaceTag(NewISO15693Tag(TestEMUID))

	_, err := radio.ReadNdefMessage(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
	_, err = radio.Transceive(context.Background(), []byte{0x02, 0x2B})
	require.ErrorIs(t, err, ErrNoSession)
}

func TestRadio_NdefStatus(t *testing.T) {
	t.Parallel()

	radio := NewRadio(zerolog.Nop())
	tag := NewISO15693Tag(TestEMUID)
	radio.PlaceTag(tag)
	require.NoError(t, radio.RequestTechnology(context.Background(), []nfcsession.Tech{nfcsession.TechNdef}, nil))

	status, capacity, err := radio.GetNdefStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nfcsession.NdefReadWrite, status)
	assert.Equal(t, 112, capacity)

	require.NoError(t, radio.MakeReadOnly(context.Background()))
	status, _, err = radio.GetNdefStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nfcsession.NdefReadOnly, status)

	tag.SetTechs(nfcsession.TechNfcV)
	status, _, err = radio.GetNdefStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nfcsession.NdefNotSupported, status)
}
