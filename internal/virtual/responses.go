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

package virtual

// ISO15693 error codes sent after an error status byte
const (
	ErrCodeNotSupported     byte = 0x01
	ErrCodeNotRecognized    byte = 0x02
	ErrCodeUnknown          byte = 0x0F
	ErrCodeBlockUnavailable byte = 0x10
	ErrCodeBlockLocked      byte = 0x12
	ErrCodeWriteFailed      byte = 0x13
)

const (
	statusOK    byte = 0x00
	statusError byte = 0x01
)

// BuildOKResponse creates a successful response carrying data
func BuildOKResponse(data []byte) []byte {
	resp := make([]byte, 0, 1+len(data))
	resp = append(resp, statusOK)
	return append(resp, data...)
}

// BuildErrorResponse creates an error response with the given error code
func BuildErrorResponse(code byte) []byte {
	return []byte{statusError, code}
}

// BuildSystemInfoResponse creates a GET_SYSTEM_INFO response reporting every
// optional field. uidLSB is the UID in wire order.
func BuildSystemInfoResponse(uidLSB []byte, dsfid, afi byte, blocks, blockSize int, icRef byte) []byte {
	resp := []byte{statusOK, 0x0F}
	resp = append(resp, uidLSB...)
	// block count and size are sent as value-1
	return append(resp, dsfid, afi, byte(blocks-1), byte(blockSize-1), icRef)
}

// Sample UIDs, MSB first
const (
	TestEMUID = "E004015012345678"
	TestSTUID = "E002223344556677"
	TestTIUID = "E007000011112222"
)
