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
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SessionState is the state of the session state machine
type SessionState int

// Session states
const (
	StateIdle SessionState = iota
	StateTech
	StateTechLoop
	StateTagEvent
	StateTagEventLoop
	StateStopping
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTech:
		return "tech"
	case StateTechLoop:
		return "tech_loop"
	case StateTagEvent:
		return "tag_event"
	case StateTagEventLoop:
		return "tag_event_loop"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// isLoop reports whether a session in this state can be stopped externally
func (s SessionState) isLoop() bool {
	return s == StateTechLoop || s == StateTagEventLoop
}

// StateMachine tracks which session owns the radio. It authorizes state
// changes but never touches the driver itself.
type StateMachine struct {
	logger     zerolog.Logger
	currentJob Job
	stop       chan struct{}
	mu         sync.Mutex
	state      SessionState
}

// NewStateMachine returns a state machine in StateIdle.
func NewStateMachine(logger zerolog.Logger) *StateMachine {
	return &StateMachine{logger: logger}
}

// State returns the current state
func (m *StateMachine) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentJob returns the job being run, or nil
func (m *StateMachine) CurrentJob() Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentJob
}

// SetCurrentJob records the job about to run and arms a fresh stop signal.
func (m *StateMachine) SetCurrentJob(job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentJob = job
	m.stop = make(chan struct{})
}

// Transition moves to state to on behalf of s. It fails if no job is set or
// s cannot handle the current job.
func (m *StateMachine) Transition(to SessionState, s Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJob == nil {
		return ErrNoCurrentJob
	}
	if s == nil || !s.CanHandle(m.currentJob) {
		name := "<nil>"
		if s != nil {
			name = s.Name()
		}
		return fmt.Errorf("%w: %s cannot handle %s", ErrStrategyMismatch, name, m.currentJob.Kind())
	}

	m.logger.Debug().
		Str(FieldOldState, m.state.String()).
		Str(FieldNewState, to.String()).
		Str(FieldStrategy, s.Name()).
		Msg("session state transition")
	m.state = to
	return nil
}

// TransitionToIdle unconditionally resets to StateIdle, clears the current job
// and returns the state it left.
func (m *StateMachine) TransitionToIdle() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	if prev != StateIdle {
		m.logger.Debug().
			Str(FieldOldState, prev.String()).
			Str(FieldNewState, StateIdle.String()).
			Msg("session state transition")
	}
	m.state = StateIdle
	m.currentJob = nil
	m.stop = nil
	return prev
}

// RequestStop moves a running loop session to StateStopping and closes its
// stop signal. It is a no-op in any other state and reports whether it acted.
func (m *StateMachine) RequestStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.isLoop() {
		return false
	}
	m.logger.Debug().
		Str(FieldOldState, m.state.String()).
		Str(FieldNewState, StateStopping.String()).
		Msg("session state transition")
	m.state = StateStopping
	if m.stop != nil {
		close(m.stop)
	}
	return true
}

// Stopping returns the signal closed when the current session is asked to
// stop. The returned channel is nil, and never closes, when no job is set.
func (m *StateMachine) Stopping() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop
}
