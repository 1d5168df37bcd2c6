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

// Package polling provides reader mode: soft-continuous tag discovery on top
// of a session engine, with a cooldown after every tag, a single pending
// write slot and exclusive technology sessions borrowed from the reader.
//
// A Reader owns its engine while it runs. It never restarts on its own: after
// Stop, WithTechnology or a failure the caller must call Start again.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/retry"
)

// Reader errors
var (
	ErrReaderNotIdle       = errors.New("reader is not idle")
	ErrReaderNotRunning    = errors.New("reader is not running")
	ErrReaderStopped       = errors.New("reader was stopped")
	ErrReaderClosed        = errors.New("reader is closed")
	ErrTechnologyInUse     = errors.New("technology session already in use")
	ErrWriteAlreadyPending = errors.New("write operation already pending")
)

// stopPollInterval is how often Stop repeats its stop request while waiting
// for the loop to drain
const stopPollInterval = 10 * time.Millisecond

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithLogger sets the reader's logger
func WithLogger(logger zerolog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader runs reader mode on an engine
type Reader struct {
	engine       *nfcsession.Engine
	config       *ReaderConfig
	logger       zerolog.Logger
	pendingWrite atomic.Pointer[WriteRequest]
	unsubscribe  func()
	started      chan struct{}
	done         chan struct{}
	clearTimer   *time.Timer
	subs         map[int]func(ReaderState)
	runErr       error
	state        ReaderState
	nextSub      int
	mu           sync.Mutex
	closed       bool
}

// NewReader creates an idle reader for engine. A nil config uses
// DefaultReaderConfig.
func NewReader(engine *nfcsession.Engine, config *ReaderConfig, opts ...ReaderOption) (*Reader, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if config == nil {
		config = DefaultReaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader config: %w", err)
	}

	r := &Reader{
		engine: engine,
		config: config,
		logger: zerolog.Nop(),
		subs:   make(map[int]func(ReaderState)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = nfcsession.WithComponent(r.logger, "reader")
	r.unsubscribe = engine.Subscribe(r.onEngineChange)
	return r, nil
}

// State returns the current reader state
func (r *Reader) State() ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error the last reader run ended with, if any
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

// Subscribe registers fn for reader state changes. fn is called at once
// with the current state. The returned function removes it.
func (r *Reader) Subscribe(fn func(ReaderState)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	snapshot := r.state
	r.mu.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Reader) notify(state ReaderState) {
	r.mu.Lock()
	fns := make([]func(ReaderState), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Start begins tag discovery. onTag, which may be nil, is called for every
// tag discovered outside the cooldown. Start returns once discovery is
// running, or with the error that prevented it.
func (r *Reader) Start(ctx context.Context, onTag nfcsession.TagFunc) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrReaderClosed
	}
	if r.state.Mode != ModeIdle {
		mode := r.state.Mode
		r.mu.Unlock()
		r.logger.Warn().Str("mode", mode.String()).Msg("cannot start reader")
		return fmt.Errorf("%w: %s", ErrReaderNotIdle, mode)
	}
	r.state.TransitionToStarting()
	started := make(chan struct{})
	done := make(chan struct{})
	r.started, r.done, r.runErr = started, done, nil
	snapshot := r.state
	r.mu.Unlock()
	r.notify(snapshot)

	job := nfcsession.TagEventLoopJob{
		OnTag:    r.tagHandler(onTag),
		Options:  r.config.Options,
		Cooldown: r.config.Cooldown,
	}
	go r.run(ctx, job, done)

	select {
	case <-started:
		r.logger.Info().Msg("reader started")
		return nil
	case <-done:
		select {
		case <-started:
			return nil
		default:
		}
		return r.Err()
	}
}

func (r *Reader) run(ctx context.Context, job nfcsession.Job, done chan struct{}) {
	defer close(done)

	err := r.engine.Run(ctx, job)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn().Err(err).Msg("reader stopped with error")
	}

	r.mu.Lock()
	r.runErr = err
	r.resetLocked()
	snapshot := r.state
	r.mu.Unlock()

	r.failPendingWrite(ErrReaderStopped)
	r.notify(snapshot)
}

// onEngineChange marks the reader active once the engine runs its loop
func (r *Reader) onEngineChange(change nfcsession.StateChange) {
	if change.To != nfcsession.StateTagEventLoop {
		return
	}
	r.mu.Lock()
	if r.state.Mode != ModeStarting {
		r.mu.Unlock()
		return
	}
	r.state.TransitionToActive()
	started := r.started
	r.started = nil
	snapshot := r.state
	r.mu.Unlock()

	r.notify(snapshot)
	if started != nil {
		close(started)
	}
}

func (r *Reader) resetLocked() {
	r.state.TransitionToIdle()
	r.started = nil
	if r.clearTimer != nil {
		r.clearTimer.Stop()
		r.clearTimer = nil
	}
}

// Stop ends tag discovery and blocks until the loop has drained, including
// an in-flight tag handler. It must not be called from the tag handler.
func (r *Reader) Stop() error {
	r.mu.Lock()
	switch r.state.Mode {
	case ModeIdle, ModeTechnology:
		r.mu.Unlock()
		return nil
	}
	done := r.done
	changed := r.state.Mode != ModeStopping
	r.state.TransitionToStopping()
	snapshot := r.state
	r.mu.Unlock()

	if changed {
		r.logger.Info().Msg("stopping reader")
		r.notify(snapshot)
	}

	_, err := retry.Poll(context.Background(), stopPollInterval, func() (struct{}, bool, error) {
		r.engine.Stop()
		select {
		case <-done:
			return struct{}{}, false, nil
		default:
			return struct{}{}, true, nil
		}
	})
	return err
}

// WithTechnology stops the reader if it is running, then runs fn inside an
// exclusive technology session. The reader is left idle afterwards.
func (r *Reader) WithTechnology(ctx context.Context, techs []nfcsession.Tech, fn nfcsession.TechFunc) error {
	if err := r.Stop(); err != nil {
		return err
	}

	r.mu.Lock()
	switch r.state.Mode {
	case ModeIdle:
	case ModeTechnology:
		r.mu.Unlock()
		return ErrTechnologyInUse
	default:
		mode := r.state.Mode
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReaderNotIdle, mode)
	}
	r.state.TransitionToTechnology()
	snapshot := r.state
	r.mu.Unlock()
	r.notify(snapshot)

	defer func() {
		r.mu.Lock()
		r.state.TransitionToIdle()
		snapshot := r.state
		r.mu.Unlock()
		r.notify(snapshot)
	}()

	err := r.engine.Run(ctx, nfcsession.TechJob{
		Techs:        techs,
		OnTechnology: fn,
		Options:      r.config.TechnologyOptions,
	})
	if err != nil {
		return fmt.Errorf("with technology: %w", err)
	}
	return nil
}

// Close stops the reader and detaches it from the engine.
func (r *Reader) Close() error {
	if err := r.Stop(); err != nil {
		return err
	}
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.unsubscribe()
	return nil
}

// tagHandler wraps onTag with state tracking and pending write processing.
// Pending writes run before onTag.
func (r *Reader) tagHandler(onTag nfcsession.TagFunc) nfcsession.TagFunc {
	return func(ctx context.Context, tag *nfcsession.Tag) error {
		r.mu.Lock()
		running := r.state.Running()
		if running {
			if r.clearTimer != nil {
				r.clearTimer.Stop()
				r.clearTimer = nil
			}
			r.state.TransitionToTagPresent(tag)
		}
		snapshot := r.state
		r.mu.Unlock()
		if running {
			r.notify(snapshot)
		}
		r.logger.Debug().Str(nfcsession.FieldTagID, tag.ID).Msg("tag discovered")

		defer r.scheduleClear()

		r.processPendingWrite(tag)
		if onTag == nil {
			return nil
		}
		return onTag(ctx, tag)
	}
}

// scheduleClear forgets the current tag once the cooldown has passed
func (r *Reader) scheduleClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Mode != ModeActive {
		return
	}
	r.clearTimer = time.AfterFunc(r.config.Cooldown, r.clearTag)
}

func (r *Reader) clearTag() {
	r.mu.Lock()
	if r.state.Mode != ModeActive || r.state.Tag == nil {
		r.mu.Unlock()
		return
	}
	r.state.TransitionToTagCleared()
	snapshot := r.state
	r.mu.Unlock()
	r.notify(snapshot)
}
