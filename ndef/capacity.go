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

// CapacityReporter is implemented by tags that may know how many bytes of
// NDEF data they can hold.
type CapacityReporter interface {
	// NdefCapacity returns the usable size in bytes and whether it is known.
	NdefCapacity() (int, bool)
}

// WillFit reports whether records encoded as one message fit on the tag.
// known is false when the tag does not report a capacity.
func WillFit(tag CapacityReporter, records ...Record) (fits, known bool, err error) {
	left, known, err := SpaceLeft(tag, records...)
	if err != nil || !known {
		return false, known, err
	}
	return left >= 0, true, nil
}

// SpaceLeft returns the tag capacity minus the encoded message length. The
// result is negative when the message does not fit.
func SpaceLeft(tag CapacityReporter, records ...Record) (left int, known bool, err error) {
	if tag == nil {
		return 0, false, nil
	}
	capacity, ok := tag.NdefCapacity()
	if !ok {
		return 0, false, nil
	}
	msg, err := Encode(records...)
	if err != nil {
		return 0, true, err
	}
	return capacity - len(msg), true, nil
}
