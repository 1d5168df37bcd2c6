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
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	tagEventStrategyName     = "TagEventOnce"
	tagEventLoopStrategyName = "TagEventLoop"
)

// tagEventStrategy resolves on the first discovered tag
type tagEventStrategy struct {
	*session
}

func (*tagEventStrategy) Name() string { return tagEventStrategyName }

func (*tagEventStrategy) CanHandle(job Job) bool {
	_, ok := job.(TagEventJob)
	return ok
}

func (s *tagEventStrategy) Execute(ctx context.Context, job Job, _ *StateMachine) error {
	j, ok := job.(TagEventJob)
	if !ok {
		return fmt.Errorf("%w: %s cannot run %T", ErrStrategyMismatch, s.Name(), job)
	}

	tags := make(chan *Tag, 1)
	var fired atomic.Bool
	handler := func(tag *Tag) {
		if tag == nil || !fired.CompareAndSwap(false, true) {
			return
		}
		tags <- tag
	}

	if err := s.registerTagEvent(ctx, s.Name(), j.Options, handler); err != nil {
		return err
	}
	defer func() {
		s.driver.SetTagDiscoveredHandler(nil)
		s.unregisterTagEvent(ctx)
	}()

	select {
	case tag := <-tags:
		s.logger.Debug().Str(FieldTagID, tag.ID).Msg("tag discovered")
		if err := j.OnTag(ctx, tag); err != nil {
			return sessionFailed(s.Name(), "tag processing", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tagEventLoopStrategy hands every discovered tag to the job until stopped
type tagEventLoopStrategy struct {
	*session
}

func (*tagEventLoopStrategy) Name() string { return tagEventLoopStrategyName }

func (*tagEventLoopStrategy) CanHandle(job Job) bool {
	_, ok := job.(TagEventLoopJob)
	return ok
}

func (s *tagEventLoopStrategy) Execute(ctx context.Context, job Job, sm *StateMachine) error {
	j, ok := job.(TagEventLoopJob)
	if !ok {
		return fmt.Errorf("%w: %s cannot run %T", ErrStrategyMismatch, s.Name(), job)
	}

	stop := sm.Stopping()
	loop := &tagLoop{
		ctx:      ctx,
		onTag:    j.OnTag,
		cooldown: j.Cooldown,
		logger:   s.logger,
		metrics:  s.metrics,
	}

	if err := s.registerTagEvent(ctx, s.Name(), j.Options, loop.handle); err != nil {
		return err
	}
	defer func() {
		s.driver.SetTagDiscoveredHandler(nil)
		loop.close()
		s.unregisterTagEvent(ctx)
	}()

	select {
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tagLoop is the discovery handler of a running tag event loop. At most one
// OnTag call is in flight; tags arriving meanwhile are dropped, not queued.
type tagLoop struct {
	ctx        context.Context
	logger     zerolog.Logger
	onTag      TagFunc
	metrics    *Metrics
	cooldownT  *time.Timer
	wg         sync.WaitGroup
	cooldown   time.Duration
	mu         sync.Mutex
	processing atomic.Bool
	closed     bool
}

func (l *tagLoop) handle(tag *Tag) {
	if tag == nil {
		return
	}
	if !l.processing.CompareAndSwap(false, true) {
		l.metrics.droppedTag()
		l.logger.Debug().Str(FieldTagID, tag.ID).Msg("tag dropped, previous tag still processing")
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.processing.Store(false)
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()
	defer l.wg.Done()

	if err := l.onTag(l.ctx, tag); err != nil {
		l.logger.Warn().Err(err).Str(FieldTagID, tag.ID).Msg("tag processing failed")
	}
	l.metrics.loopIteration(KindTagEventLoop)
	l.release()
}

// release clears the processing lock, after the cooldown if one is set
func (l *tagLoop) release() {
	if l.cooldown <= 0 {
		l.processing.Store(false)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.cooldownT = time.AfterFunc(l.cooldown, func() {
		l.processing.Store(false)
	})
}

// close rejects further tags and waits for an in-flight OnTag to return.
func (l *tagLoop) close() {
	l.mu.Lock()
	l.closed = true
	if l.cooldownT != nil {
		l.cooldownT.Stop()
	}
	l.mu.Unlock()

	l.wg.Wait()
}
