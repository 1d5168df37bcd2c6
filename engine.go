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
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StateChange is delivered to subscribers after every session state change.
type StateChange struct {
	JobID string
	From  SessionState
	To    SessionState
}

// queuedJob is a submitted job with the context it was submitted under
type queuedJob struct {
	ctx context.Context
	job Job
	id  string
}

// Engine arbitrates exclusive access to one radio. It runs one job at a time
// and keeps at most one job waiting while a loop drains.
type Engine struct {
	driver     RadioDriver
	logger     zerolog.Logger
	sm         *StateMachine
	metrics    *Metrics
	defaults   *RequestOptions
	newID      func() string
	pending    *queuedJob
	subs       map[int]func(StateChange)
	strategies strategySet
	nextSub    int
	mu         sync.Mutex
	subsMu     sync.Mutex
	executing  bool
}

// New creates an engine for driver.
func New(driver RadioDriver, opts ...Option) (*Engine, error) {
	if driver == nil {
		return nil, errors.New("driver cannot be nil")
	}

	e := &Engine{
		driver: driver,
		logger: zerolog.Nop(),
		newID:  newJobID,
		subs:   make(map[int]func(StateChange)),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.logger = WithComponent(e.logger, "nfcsession")
	e.sm = NewStateMachine(e.logger)
	e.strategies = newStrategySet(&session{
		driver:  driver,
		logger:  e.logger,
		metrics: e.metrics,
	})
	return e, nil
}

// State returns the current session state
func (e *Engine) State() SessionState {
	return e.sm.State()
}

// Driver returns the radio driver the engine arbitrates
func (e *Engine) Driver() RadioDriver {
	return e.driver
}

// Submit runs job, blocking until it and any job parked behind it finish.
//
// While a loop is stopping the job is parked in the single retry slot,
// replacing any job already there, and Submit returns nil at once; the job
// runs when the loop has drained. Submitting while another job runs in any
// other state returns ErrSessionBusy.
func (e *Engine) Submit(ctx context.Context, job Job) error {
	return e.submit(ctx, job, true)
}

// Run is like Submit but never parks job: while a loop is stopping it fails
// with ErrSessionBusy.
func (e *Engine) Run(ctx context.Context, job Job) error {
	return e.submit(ctx, job, false)
}

func (e *Engine) submit(ctx context.Context, job Job, park bool) error {
	if err := validateJob(job); err != nil {
		return err
	}
	q := &queuedJob{ctx: ctx, job: prepareJob(job, e.defaults), id: e.newID()}
	logger := e.jobLogger(q)

	e.mu.Lock()
	if park && e.sm.State() == StateStopping {
		if e.pending != nil {
			logger.Debug().Str("replaced_job_id", e.pending.id).Msg("retry slot overwritten")
		}
		e.pending = q
		e.mu.Unlock()
		e.metrics.retrySlotWrite()
		logger.Info().Msg("session stopping, job parked in retry slot")
		return nil
	}
	if e.executing {
		e.mu.Unlock()
		logger.Debug().Msg("job rejected, session busy")
		return ErrSessionBusy
	}
	e.executing = true
	e.mu.Unlock()

	return e.drain(q)
}

// drain runs q and then every job found in the retry slot. Errors of all runs
// are joined.
func (e *Engine) drain(q *queuedJob) error {
	var errs []error
	for q != nil {
		next, err := e.step(q)
		if err != nil {
			errs = append(errs, err)
		}
		q = next
	}
	return errors.Join(errs...)
}

// step runs one job. The state machine is returned to idle on every exit
// path, including a panic in the strategy.
func (e *Engine) step(q *queuedJob) (next *queuedJob, err error) {
	completed := false
	defer func() {
		next = e.release(q, completed)
	}()

	err = e.run(q)
	completed = true
	return nil, err
}

func (e *Engine) run(q *queuedJob) error {
	logger := e.jobLogger(q)

	strategy, err := e.strategies.forJob(q.job)
	if err != nil {
		return err
	}

	e.sm.SetCurrentJob(q.job)
	to := targetState(q.job.Kind())
	if err := e.sm.Transition(to, strategy); err != nil {
		return err
	}
	e.notify(StateChange{JobID: q.id, From: StateIdle, To: to})

	logger.Debug().Str(FieldStrategy, strategy.Name()).Msg("session started")
	start := time.Now()
	err = strategy.Execute(q.ctx, q.job, e.sm)
	elapsed := time.Since(start)
	e.metrics.observeJob(q.job.Kind(), err, elapsed)

	if err != nil {
		logger.Error().Err(err).Dur(FieldDuration, elapsed).Msg("session failed")
		return err
	}
	logger.Debug().Dur(FieldDuration, elapsed).Msg("session completed")
	return nil
}

// release returns the machine to idle and takes the parked job, if any. The
// in-flight flag is cleared only when nothing is left to run. A job parked
// behind a strategy that panicked is discarded.
func (e *Engine) release(q *queuedJob, completed bool) *queuedJob {
	e.mu.Lock()
	prev := e.sm.TransitionToIdle()
	next := e.pending
	e.pending = nil
	if !completed {
		next = nil
	}
	if next == nil {
		e.executing = false
	}
	e.mu.Unlock()

	if prev != StateIdle {
		e.notify(StateChange{JobID: q.id, From: prev, To: StateIdle})
	}
	if next != nil {
		logger := e.jobLogger(next)
		logger.Info().Msg("running job from retry slot")
	}
	return next
}

// Stop clears the retry slot and asks a running loop to stop. It does not
// wait for the loop to drain. One-shot sessions are not affected.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.pending != nil {
		e.logger.Debug().Str(FieldJobID, e.pending.id).Msg("retry slot cleared")
	}
	e.pending = nil
	from := e.sm.State()
	stopped := e.sm.RequestStop()
	e.mu.Unlock()

	if stopped {
		e.logger.Info().Msg("stop requested")
		e.notify(StateChange{From: from, To: StateStopping})
	}
}

// Subscribe registers fn to receive state changes and returns a function that
// removes it. fn is called synchronously and must not block.
func (e *Engine) Subscribe(fn func(StateChange)) (unsubscribe func()) {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, id)
			e.subsMu.Unlock()
		})
	}
}

func (e *Engine) notify(change StateChange) {
	e.subsMu.Lock()
	fns := make([]func(StateChange), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (e *Engine) jobLogger(q *queuedJob) zerolog.Logger {
	return e.logger.With().
		Str(FieldJobID, q.id).
		Str(FieldJobKind, q.job.Kind().String()).
		Logger()
}

// StartTech runs a single technology session.
func (e *Engine) StartTech(
	ctx context.Context,
	techs []Tech,
	onTechnology, afterTechnology TechFunc,
	opts *RequestOptions,
) error {
	return e.Submit(ctx, TechJob{
		Techs:           techs,
		OnTechnology:    onTechnology,
		AfterTechnology: afterTechnology,
		Options:         opts,
	})
}

// StartTechLoop runs technology sessions back to back until Stop is called
// or ctx is done. It blocks for the lifetime of the loop.
func (e *Engine) StartTechLoop(
	ctx context.Context,
	techs []Tech,
	onTechnology, afterTechnology TechFunc,
	opts *RequestOptions,
) error {
	return e.Submit(ctx, TechLoopJob{
		Techs:           techs,
		OnTechnology:    onTechnology,
		AfterTechnology: afterTechnology,
		Options:         opts,
	})
}

// StartTagEvent waits for one tag and passes it to onTag.
func (e *Engine) StartTagEvent(ctx context.Context, onTag TagFunc, opts *RequestOptions) error {
	return e.Submit(ctx, TagEventJob{OnTag: onTag, Options: opts})
}

// StartTagEventLoop passes every discovered tag to onTag until Stop is called
// or ctx is done. It blocks for the lifetime of the loop.
func (e *Engine) StartTagEventLoop(ctx context.Context, onTag TagFunc, opts *RequestOptions) error {
	return e.Submit(ctx, TagEventLoopJob{OnTag: onTag, Options: opts})
}
