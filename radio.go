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
	"time"

	"github.com/ZaparooProject/go-nfcsession/ndef"
)

// RequestOptions are passed through to the driver when a technology or tag
// event session is opened. Drivers ignore the fields they do not support.
type RequestOptions struct {
	// AlertMessage is shown by platforms that display a scan prompt.
	AlertMessage string
	// ReaderModeDelay is the presence check interval in reader mode.
	ReaderModeDelay time.Duration
	// ReaderModeFlags are platform reader mode flags.
	ReaderModeFlags int
	// InvalidateAfterFirstRead ends a tag event session after one tag.
	InvalidateAfterFirstRead bool
	// IsReaderModeEnabled requests reader mode instead of foreground dispatch.
	IsReaderModeEnabled bool
}

// TagHandler receives tags discovered while a tag event session is registered.
type TagHandler func(tag *Tag)

// RadioDriver is the platform NFC radio. The engine guarantees that at most
// one session holds it at a time and that every RequestTechnology is paired
// with CancelTechnologyRequest and every RegisterTagEvent with
// UnregisterTagEvent.
type RadioDriver interface {
	// RequestTechnology blocks until a tag supporting one of techs is in the
	// field and a session with it is open, or ctx is done.
	RequestTechnology(ctx context.Context, techs []Tech, opts *RequestOptions) error
	CancelTechnologyRequest(ctx context.Context) error
	RegisterTagEvent(ctx context.Context, opts *RequestOptions) error
	UnregisterTagEvent(ctx context.Context) error
	// SetTagDiscoveredHandler installs the tag discovery handler; nil clears it.
	SetTagDiscoveredHandler(handler TagHandler)
	Transceive(ctx context.Context, data []byte) ([]byte, error)
	// GetCurrentTag returns the tag of the open technology session, or nil.
	GetCurrentTag(ctx context.Context) (*Tag, error)
}

// NdefStatus is the NDEF capability of the tag in the field
type NdefStatus int

// NDEF statuses
const (
	NdefNotSupported NdefStatus = iota + 1
	NdefReadWrite
	NdefReadOnly
)

func (s NdefStatus) String() string {
	switch s {
	case NdefNotSupported:
		return "not-supported"
	case NdefReadWrite:
		return "read-write"
	case NdefReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// NdefDriver is implemented by drivers that can read and write NDEF messages
// on the tag of an open technology session.
type NdefDriver interface {
	// ReadNdefMessage returns the records of the tag's NDEF message, or nil
	// when the tag holds none.
	ReadNdefMessage(ctx context.Context) ([]ndef.Record, error)
	// WriteNdefMessage writes an encoded NDEF message.
	WriteNdefMessage(ctx context.Context, msg []byte) error
	// GetNdefStatus returns the NDEF status and capacity in bytes.
	GetNdefStatus(ctx context.Context) (NdefStatus, int, error)
	MakeReadOnly(ctx context.Context) error
}
