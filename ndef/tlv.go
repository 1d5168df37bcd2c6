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

import "fmt"

// TLV block types
const (
	TLVNull       byte = 0x00
	TLVLockCtrl   byte = 0x01
	TLVMemCtrl    byte = 0x02
	TLVMessage    byte = 0x03
	TLVTerminator byte = 0xFE
)

const (
	tlvLongForm  = 0xFF
	maxTLVLength = 0xFFFE
)

// WrapTLV frames an encoded NDEF message as an NDEF Message TLV followed by a
// Terminator TLV. Lengths of 255 and above use the 3-byte form.
func WrapTLV(msg []byte) ([]byte, error) {
	n := len(msg)
	if n > maxTLVLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTLVTooLarge, n)
	}

	out := make([]byte, 0, TLVSize(n))
	out = append(out, TLVMessage)
	if n < tlvLongForm {
		out = append(out, byte(n))
	} else {
		out = append(out, tlvLongForm, byte(n>>8), byte(n))
	}
	out = append(out, msg...)
	return append(out, TLVTerminator), nil
}

// TLVSize is the number of bytes WrapTLV produces for an n byte message.
func TLVSize(n int) int {
	if n < tlvLongForm {
		return n + 3
	}
	return n + 5
}

// ExtractTLV returns the value of the first NDEF Message TLV in data, skipping
// Null TLVs and any other TLV before it.
func ExtractTLV(data []byte) ([]byte, error) {
	offset := 0
	for offset < len(data) {
		typ := data[offset]
		offset++

		switch typ {
		case TLVNull:
			continue
		case TLVTerminator:
			return nil, ErrNoNDEF
		}

		length, next, err := readTLVLength(data, offset)
		if err != nil {
			return nil, err
		}
		if next+length > len(data) {
			return nil, fmt.Errorf("%w: TLV 0x%02X claims %d bytes, %d available",
				ErrInvalidTLV, typ, length, len(data)-next)
		}
		if typ == TLVMessage {
			return clone(data[next : next+length]), nil
		}
		offset = next + length
	}
	return nil, ErrNoNDEF
}

func readTLVLength(data []byte, offset int) (length, next int, err error) {
	if offset >= len(data) {
		return 0, 0, fmt.Errorf("%w: missing length", ErrInvalidTLV)
	}
	if data[offset] != tlvLongForm {
		return int(data[offset]), offset + 1, nil
	}
	if offset+2 >= len(data) {
		return 0, 0, fmt.Errorf("%w: truncated long length", ErrInvalidTLV)
	}
	return int(data[offset+1])<<8 | int(data[offset+2]), offset + 3, nil
}
