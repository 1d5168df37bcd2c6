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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-nfcsession"
)

// ReaderMode is the state of the reader finite state machine
type ReaderMode int

const (
	ModeIdle ReaderMode = iota
	ModeStarting
	ModeActive
	ModeStopping
	ModeTechnology
)

func (m ReaderMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeStarting:
		return "starting"
	case ModeActive:
		return "active"
	case ModeStopping:
		return "stopping"
	case ModeTechnology:
		return "technology"
	default:
		return fmt.Sprintf("ReaderMode(%d)", int(m))
	}
}

// ReaderState is the snapshot delivered to reader subscribers
type ReaderState struct {
	LastSeen time.Time
	Tag      *nfcsession.Tag
	Mode     ReaderMode
}

// Running reports whether the reader is discovering tags
func (s ReaderState) Running() bool {
	return s.Mode == ModeStarting || s.Mode == ModeActive
}

// TransitionToStarting moves to starting and forgets the last tag
func (s *ReaderState) TransitionToStarting() {
	s.Mode = ModeStarting
	s.Tag = nil
	s.LastSeen = time.Time{}
}

// TransitionToActive marks tag discovery as running
func (s *ReaderState) TransitionToActive() {
	s.Mode = ModeActive
}

// TransitionToTagPresent records a discovered tag
func (s *ReaderState) TransitionToTagPresent(tag *nfcsession.Tag) {
	s.Mode = ModeActive
	s.Tag = tag
	s.LastSeen = time.Now()
}

// TransitionToTagCleared drops the last tag once its cooldown has passed
func (s *ReaderState) TransitionToTagCleared() {
	s.Tag = nil
}

// TransitionToStopping marks a stop in progress
func (s *ReaderState) TransitionToStopping() {
	s.Mode = ModeStopping
}

// TransitionToTechnology marks an exclusive technology session
func (s *ReaderState) TransitionToTechnology() {
	s.Mode = ModeTechnology
	s.Tag = nil
}

// TransitionToIdle resets to idle
func (s *ReaderState) TransitionToIdle() {
	s.Mode = ModeIdle
	s.Tag = nil
	s.LastSeen = time.Time{}
}
