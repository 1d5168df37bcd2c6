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

import (
	"encoding/binary"
	"fmt"
)

// Record header flags
const (
	flagMB      = 0x80
	flagME      = 0x40
	flagCF      = 0x20
	flagSR      = 0x10
	flagIL      = 0x08
	tnfMask     = 0x07
	maxShortLen = 0xFF
)

// Encode serializes records into a single NDEF message.
func Encode(records ...Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyMessage
	}

	out := make([]byte, 0, encodedSize(records))
	for i, r := range records {
		if len(r.Type) > maxShortLen {
			return nil, fmt.Errorf("%w: record %d type is %d bytes", ErrFieldTooLong, i, len(r.Type))
		}
		if len(r.ID) > maxShortLen {
			return nil, fmt.Errorf("%w: record %d id is %d bytes", ErrFieldTooLong, i, len(r.ID))
		}

		header := byte(r.TNF) & tnfMask
		if i == 0 {
			header |= flagMB
		}
		if i == len(records)-1 {
			header |= flagME
		}
		short := len(r.Payload) <= maxShortLen
		if short {
			header |= flagSR
		}
		if len(r.ID) > 0 {
			header |= flagIL
		}

		out = append(out, header, byte(len(r.Type)))
		if short {
			out = append(out, byte(len(r.Payload)))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(len(r.Payload)))
		}
		if len(r.ID) > 0 {
			out = append(out, byte(len(r.ID)))
		}
		out = append(out, r.Type...)
		out = append(out, r.ID...)
		out = append(out, r.Payload...)
	}
	return out, nil
}

func encodedSize(records []Record) int {
	size := 0
	for _, r := range records {
		size += 3 + len(r.Type) + len(r.ID) + len(r.Payload)
		if len(r.Payload) > maxShortLen {
			size += 3
		}
		if len(r.ID) > 0 {
			size++
		}
	}
	return size
}

// Decode parses an NDEF message into its records. Decoding stops at the
// record carrying the ME flag; trailing bytes are ignored.
func Decode(msg []byte) ([]Record, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyMessage
	}

	var records []Record
	offset := 0
	for offset < len(msg) {
		r, next, last, err := decodeRecordAt(msg, offset)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, r)
		offset = next
		if last {
			return records, nil
		}
	}
	return nil, ErrMissingEndMessage
}

func decodeRecordAt(msg []byte, offset int) (rec Record, next int, last bool, err error) {
	need := func(n int) error {
		if offset+n > len(msg) {
			return ErrTruncatedRecord
		}
		return nil
	}

	if err = need(2); err != nil {
		return rec, 0, false, err
	}
	header := msg[offset]
	typeLen := int(msg[offset+1])
	offset += 2

	if header&flagCF != 0 {
		return rec, 0, false, ErrChunkedRecord
	}

	var payloadLen int
	if header&flagSR != 0 {
		if err = need(1); err != nil {
			return rec, 0, false, err
		}
		payloadLen = int(msg[offset])
		offset++
	} else {
		if err = need(4); err != nil {
			return rec, 0, false, err
		}
		n := binary.BigEndian.Uint32(msg[offset:])
		if uint64(n) > uint64(len(msg)) {
			return rec, 0, false, ErrTruncatedRecord
		}
		payloadLen = int(n)
		offset += 4
	}

	idLen := 0
	if header&flagIL != 0 {
		if err = need(1); err != nil {
			return rec, 0, false, err
		}
		idLen = int(msg[offset])
		offset++
	}

	if err = need(typeLen + idLen + payloadLen); err != nil {
		return rec, 0, false, err
	}

	rec.TNF = TNF(header & tnfMask)
	rec.Type = clone(msg[offset : offset+typeLen])
	offset += typeLen
	rec.ID = clone(msg[offset : offset+idLen])
	offset += idLen
	rec.Payload = clone(msg[offset : offset+payloadLen])
	offset += payloadLen

	return rec, offset, header&flagME != 0, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
