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

package iso15693

import (
	"errors"
	"fmt"
)

// Codec errors
var (
	ErrMalformedUID      = errors.New("malformed ISO15693 UID")
	ErrEmptyResponse     = errors.New("empty ISO15693 response")
	ErrReadWriteFailed   = errors.New("ISO15693 read/write failed")
	ErrInvalidSystemInfo = errors.New("invalid system info response")
	ErrMissingBlockData  = errors.New("no data provided for block")
	ErrBlockOutOfRange   = errors.New("block number out of range")
)

// MaxBlocks is the number of blocks addressable by a single-byte block
// number.
const MaxBlocks = 256

// StatusError reports a tag response whose status byte was not 0x00.
// Code holds the ISO15693 error code that follows the status byte, if any.
type StatusError struct {
	Op     string
	Status byte
	Code   byte
}

func (e *StatusError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failed: status 0x%02X, error code 0x%02X", e.Op, e.Status, e.Code)
	}
	return fmt.Sprintf("%s failed: status 0x%02X", e.Op, e.Status)
}

// Is matches ErrReadWriteFailed so callers can test the class of failure
// without unpacking the status.
func (*StatusError) Is(target error) bool {
	return target == ErrReadWriteFailed
}
