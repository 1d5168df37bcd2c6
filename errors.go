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
	"errors"
	"fmt"
	"strings"
)

// State machine and dispatcher errors
var (
	ErrNoCurrentJob     = errors.New("no current job")
	ErrStrategyMismatch = errors.New("strategy cannot handle the current job")
	ErrNoStrategyFound  = errors.New("no strategy found for job")
	ErrSessionBusy      = errors.New("a session is already executing")
	ErrInvalidJob       = errors.New("invalid job")
)

// Session errors
var (
	ErrSessionFailed      = errors.New("nfc session failed")
	ErrRegistrationFailed = errors.New("tag event registration failed")
	ErrNoTag              = errors.New("no tag in field")
	ErrNdefUnsupported    = errors.New("radio driver does not support NDEF")
	ErrNoNdefMessage      = errors.New("no NDEF message on tag")
)

// Driver errors a RadioDriver may return. The TechLoop strategy recovers from
// both; drivers that cannot wrap them are still matched by message.
var (
	ErrUserCancel               = errors.New("user cancelled the request")
	ErrTechnologyAlreadyStarted = errors.New("technology request already started")
)

// SessionError is returned when a session strategy fails. It matches
// ErrSessionFailed and unwraps to the driver or callback error.
type SessionError struct {
	Err      error
	Strategy string
	Op       string
}

func (e *SessionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSessionFailed
func (*SessionError) Is(target error) bool {
	return target == ErrSessionFailed
}

func sessionFailed(strategy, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SessionError
	if errors.As(err, &se) {
		return err
	}
	return &SessionError{Strategy: strategy, Op: op, Err: err}
}

// IsUserCancel reports whether err means the user dismissed the radio prompt.
func IsUserCancel(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserCancel) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "usercancel") ||
		strings.Contains(msg, "user cancel") ||
		strings.Contains(msg, "cancelled by user")
}

// IsAlreadyStarted reports whether err means a technology request was already
// open on the radio.
func IsAlreadyStarted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTechnologyAlreadyStarted) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already started")
}
