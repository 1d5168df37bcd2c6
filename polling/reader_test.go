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

package polling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/virtual"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestReader(t *testing.T, config *ReaderConfig) (*Reader, *virtual.Radio) {
	t.Helper()
	radio := virtual.NewRadio(zerolog.Nop())
	engine, err := nfcsession.New(radio)
	require.NoError(t, err)
	reader, err := NewReader(engine, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader, radio
}

// modeRecorder collects every mode a reader reports
type modeRecorder struct {
	modes []ReaderMode
	mu    sync.Mutex
}

func (m *modeRecorder) record(s ReaderState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.modes); n > 0 && m.modes[n-1] == s.Mode {
		return
	}
	m.modes = append(m.modes, s.Mode)
}

func (m *modeRecorder) get() []ReaderMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReaderMode(nil), m.modes...)
}

func TestNewReader_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewReader(nil, nil)
	require.Error(t, err)

	radio := virtual.NewRadio(zerolog.Nop())
	engine, err := nfcsession.New(radio)
	require.NoError(t, err)
	_, err = NewReader(engine, &ReaderConfig{Cooldown: -time.Second})
	require.Error(t, err)
}

func TestDefaultReaderConfig(t *testing.T) {
	t.Parallel()

	config := DefaultReaderConfig()
	assert.Equal(t, 1500*time.Millisecond, config.Cooldown)
	require.NotNil(t, config.Options)
	assert.True(t, config.Options.IsReaderModeEnabled)
	require.NoError(t, config.Validate())
}

func TestReader_StartStop(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, &ReaderConfig{Cooldown: 10 * time.Millisecond})
	rec := &modeRecorder{}
	unsubscribe := reader.Subscribe(rec.record)
	defer unsubscribe()

	require.NoError(t, reader.Start(context.Background(), nil))
	assert.Equal(t, ModeActive, reader.State().Mode)
	require.Eventually(t, radio.IsRegistered, time.Second, time.Millisecond)

	require.ErrorIs(t, reader.Start(context.Background(), nil), ErrReaderNotIdle)

	require.NoError(t, reader.Stop())
	assert.Equal(t, ModeIdle, reader.State().Mode)
	assert.False(t, radio.IsRegistered())
	require.NoError(t, reader.Stop())

	assert.Equal(t, []ReaderMode{ModeIdle, ModeStarting, ModeActive, ModeStopping, ModeIdle}, rec.get())
}

func TestReader_TagDiscoveryAndCooldown(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, &ReaderConfig{Cooldown: 40 * time.Millisecond})

	var (
		mu   sync.Mutex
		seen []string
	)
	require.NoError(t, reader.Start(context.Background(), func(_ context.Context, tag *nfcsession.Tag) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tag.ID)
		return nil
	}))
	require.Eventually(t, radio.IsRegistered, time.Second, time.Millisecond)

	tag := virtual.NewISO15693Tag(virtual.TestEMUID)
	radio.Discover(tag)
	state := reader.State()
	require.NotNil(t, state.Tag)
	assert.Equal(t, virtual.TestEMUID, state.Tag.ID)
	assert.False(t, state.LastSeen.IsZero())

	radio.Discover(tag)
	mu.Lock()
	assert.Len(t, seen, 1, "tag inside the cooldown is dropped")
	mu.Unlock()

	require.Eventually(t, func() bool { return reader.State().Tag == nil }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		radio.Discover(tag)
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, reader.Stop())
}

func TestReader_HandlerErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, &ReaderConfig{})
	require.NoError(t, reader.Start(context.Background(), func(context.Context, *nfcsession.Tag) error {
		return errors.New("unknown game")
	}))
	require.Eventually(t, radio.IsRegistered, time.Second, time.Millisecond)

	radio.Discover(virtual.NewISO15693Tag(virtual.TestEMUID))
	assert.True(t, reader.State().Running())
	require.NoError(t, reader.Stop())
}

func TestReader_RegistrationFailure(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, nil)
	radio.FailRegister(errors.New("nfc disabled"))

	require.NoError(t, reader.Start(context.Background(), nil))
	require.Eventually(t, func() bool { return reader.State().Mode == ModeIdle }, time.Second, time.Millisecond)
	require.ErrorIs(t, reader.Err(), nfcsession.ErrRegistrationFailed)

	radio.FailRegister(nil)
	require.NoError(t, reader.Start(context.Background(), nil))
	require.NoError(t, reader.Stop())
}

func TestReader_ContextCancelEndsRun(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, reader.Start(ctx, nil))

	cancel()
	require.Eventually(t, func() bool { return reader.State().Mode == ModeIdle }, time.Second, time.Millisecond)
	require.ErrorIs(t, reader.Err(), context.Canceled)
}

func TestReader_WithTechnologyStopsAndDoesNotRestart(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, nil)
	tag := virtual.NewISO15693Tag(virtual.TestEMUID)
	radio.PlaceTag(tag)

	rec := &modeRecorder{}
	unsubscribe := reader.Subscribe(rec.record)
	defer unsubscribe()

	require.NoError(t, reader.Start(context.Background(), nil))

	var block []byte
	err := reader.WithTechnology(context.Background(), []nfcsession.Tech{nfcsession.TechNfcV}, func(context.Context) error {
		assert.Equal(t, ModeTechnology, reader.State().Mode)
		assert.ErrorIs(t, reader.Start(context.Background(), nil), ErrReaderNotIdle)
		var err error
		block, err = tag.ReadBlock(0)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, ModeIdle, reader.State().Mode)
	assert.False(t, radio.IsRegistered())
	assert.False(t, radio.TechOpen())
	assert.Len(t, block, 4)
	assert.Equal(t, []ReaderMode{
		ModeIdle, ModeStarting, ModeActive, ModeStopping, ModeIdle, ModeTechnology, ModeIdle,
	}, rec.get())
}

func TestReader_WithTechnologyError(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, nil)
	radio.PlaceTag(virtual.NewISO15693Tag(virtual.TestEMUID))
	lost := errors.New("tag lost")

	err := reader.WithTechnology(context.Background(), []nfcsession.Tech{nfcsession.TechNfcV}, func(context.Context) error {
		return lost
	})
	require.ErrorIs(t, err, lost)
	require.ErrorIs(t, err, nfcsession.ErrSessionFailed)
	assert.Equal(t, ModeIdle, reader.State().Mode)
}

func TestReader_WriteToNextTag(t *testing.T) {
	t.Parallel()

	reader, radio := newTestReader(t, &ReaderConfig{})
	handled := make(chan string, 1)
	require.NoError(t, reader.Start(context.Background(), func(_ context.Context, tag *nfcsession.Tag) error {
		handled <- tag.ID
		return nil
	}))
	require.Eventually(t, radio.IsRegistered, time.Second, time.Millisecond)

	msg, err := ndef.Encode(ndef.URIRecord("https://zaparoo.org", ""))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- reader.WriteToNextTag(context.Background(), time.Second, func(ctx context.Context, _ *nfcsession.Tag) error {
			return radio.WriteNdefMessage(ctx, msg)
		})
	}()
	require.Eventually(t, reader.HasPendingWrite, time.Second, time.Millisecond)

	err = reader.WriteToNextTag(context.Background(), time.Second, func(context.Context, *nfcsession.Tag) error {
		return nil
	})
	require.ErrorIs(t, err, ErrWriteAlreadyPending)

	tag := virtual.NewISO15693Tag(virtual.TestEMUID)
	radio.Discover(tag)
	require.NoError(t, <-done)
	assert.Equal(t, virtual.TestEMUID, <-handled)
	assert.False(t, reader.HasPendingWrite())

	records, err := tag.NdefRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, reader.Stop())
}

func TestReader_WriteToNextTag_NotRunning(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	err := reader.WriteToNextTag(context.Background(), time.Second, func(context.Context, *nfcsession.Tag) error {
		return nil
	})
	require.ErrorIs(t, err, ErrReaderNotRunning)
}

func TestReader_WriteToNextTag_Timeout(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	require.NoError(t, reader.Start(context.Background(), nil))

	err := reader.WriteToNextTag(context.Background(), 20*time.Millisecond, func(context.Context, *nfcsession.Tag) error {
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, reader.HasPendingWrite())
	require.NoError(t, reader.Stop())
}

func TestReader_StopFailsPendingWrite(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	require.NoError(t, reader.Start(context.Background(), nil))

	done := make(chan error, 1)
	go func() {
		done <- reader.WriteToNextTag(context.Background(), 5*time.Second, func(context.Context, *nfcsession.Tag) error {
			return nil
		})
	}()
	require.Eventually(t, reader.HasPendingWrite, time.Second, time.Millisecond)

	require.NoError(t, reader.Stop())
	require.ErrorIs(t, <-done, ErrReaderStopped)
}

func TestReader_QueueWriteAfterRunEnded(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	req := &WriteRequest{
		ctx:       context.Background(),
		createdAt: time.Now(),
		operation: func(context.Context, *nfcsession.Tag) error { return nil },
		result:    make(chan error, 1),
	}

	require.ErrorIs(t, reader.queueWrite(req), ErrReaderStopped)
	assert.False(t, reader.HasPendingWrite())

	require.NoError(t, reader.Start(context.Background(), nil))
	require.NoError(t, reader.queueWrite(req))
	assert.True(t, reader.HasPendingWrite())
	require.ErrorIs(t, reader.queueWrite(req), ErrWriteAlreadyPending)

	require.NoError(t, reader.Stop())
	assert.False(t, reader.HasPendingWrite())
	require.ErrorIs(t, <-req.result, ErrReaderStopped)
}

func TestReader_Closed(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t, nil)
	require.NoError(t, reader.Close())
	require.ErrorIs(t, reader.Start(context.Background(), nil), ErrReaderClosed)
}
