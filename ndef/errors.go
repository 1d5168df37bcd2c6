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

package ndef

import "errors"

// Record construction errors
var (
	ErrUnsupportedField  = errors.New("ndef field must be a string or []byte")
	ErrNotSerializable   = errors.New("value is not JSON serializable")
	ErrEmptyMimeType     = errors.New("mime type cannot be empty")
	ErrEmptyExternalType = errors.New("external record domain and type cannot be empty")
	ErrFieldTooLong      = errors.New("ndef field exceeds 255 bytes")
)

// Message encoding and decoding errors
var (
	ErrEmptyMessage      = errors.New("ndef message must contain at least one record")
	ErrTruncatedRecord   = errors.New("ndef record truncated")
	ErrChunkedRecord     = errors.New("chunked ndef records are not supported")
	ErrMissingEndMessage = errors.New("ndef message has no ME record")
	ErrInvalidTextRecord = errors.New("invalid TEXT record: missing status byte")
	ErrInvalidJSON       = errors.New("invalid JSON payload")
)

// TLV errors
var (
	ErrNoNDEF      = errors.New("no NDEF message TLV found")
	ErrInvalidTLV  = errors.New("malformed TLV")
	ErrTLVTooLarge = errors.New("NDEF message too large for TLV")
)
