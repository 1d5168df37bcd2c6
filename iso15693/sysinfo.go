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
	"encoding/hex"
	"strings"
)

// Info flag bits of a GET_SYSTEM_INFO response. Bits 4-7 are reserved.
const (
	InfoFlagDSFID       byte = 0x01
	InfoFlagAFI         byte = 0x02
	InfoFlagMemorySize  byte = 0x04
	InfoFlagICReference byte = 0x08
	infoFlagMask        byte = 0x0F
)

// DefaultBlockSize is assumed when a tag does not report its memory size
const DefaultBlockSize = 4

const unknownManufacturer = "Unknown"

// manufacturerPrefixes maps MSB-first UID prefixes to IC manufacturers
var manufacturerPrefixes = []struct {
	prefix string
	name   string
}{
	{"E004", "EM Microelectronic"},
	{"E006", "EM Microelectronic"},
	{"E016", "EM Microelectronic"},
	{"E002", "STMicroelectronics"},
	{"E007", "Texas Instruments"},
	{"E010", "NXP"},
}

// SystemInfo is the decoded GET_SYSTEM_INFO response. Optional fields are nil
// unless the tag reported them.
type SystemInfo struct {
	UID            *string
	DSFID          *byte
	AFI            *byte
	NumberOfBlocks *int
	BlockSize      *int
	ICReference    *byte
	Manufacturer   string
}

// MemorySize returns the total user memory in bytes, or 0 when the number of
// blocks is unknown.
func (s *SystemInfo) MemorySize() int {
	if s.NumberOfBlocks == nil || s.BlockSize == nil {
		return 0
	}
	return *s.NumberOfBlocks * *s.BlockSize
}

// ParseSystemInfo decodes a GET_SYSTEM_INFO response.
//
// Fields follow the info flags byte strictly in the order UID, DSFID, AFI,
// memory size, IC reference. Block count and block size are sent as value-1.
func ParseSystemInfo(resp []byte) (*SystemInfo, error) {
	if len(resp) < 2 || resp[0] != StatusOK {
		return nil, ErrInvalidSystemInfo
	}

	flags := resp[1] & infoFlagMask
	offset := 2
	info := &SystemInfo{}

	if len(resp) >= offset+UIDLength {
		uid := make([]byte, UIDLength)
		copy(uid, resp[offset:offset+UIDLength])
		reverseBytes(uid)
		hexUID := strings.ToUpper(hex.EncodeToString(uid))
		info.UID = &hexUID
		offset += UIDLength
	}

	if flags&InfoFlagDSFID != 0 && len(resp) > offset {
		dsfid := resp[offset]
		info.DSFID = &dsfid
		offset++
	}

	if flags&InfoFlagAFI != 0 && len(resp) > offset {
		afi := resp[offset]
		info.AFI = &afi
		offset++
	}

	if flags&InfoFlagMemorySize != 0 && len(resp) >= offset+2 {
		blocks := int(resp[offset]) + 1
		size := int(resp[offset+1]) + 1
		info.NumberOfBlocks = &blocks
		info.BlockSize = &size
		offset += 2
	}

	if flags&InfoFlagICReference != 0 && len(resp) > offset {
		ic := resp[offset]
		info.ICReference = &ic
	}

	if info.BlockSize == nil {
		size := DefaultBlockSize
		info.BlockSize = &size
	}

	uid := ""
	if info.UID != nil {
		uid = *info.UID
	}
	info.Manufacturer = DetectManufacturer(uid)

	return info, nil
}

// DetectManufacturer identifies common NFC-V manufacturers from the UID prefix.
func DetectManufacturer(uid string) string {
	uid = strings.ToUpper(uid)
	for _, m := range manufacturerPrefixes {
		if strings.HasPrefix(uid, m.prefix) {
			return m.name
		}
	}
	return unknownManufacturer
}
