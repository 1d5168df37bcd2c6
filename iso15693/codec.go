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

// Package iso15693 builds addressed ISO15693 (NFC-V) commands and parses the
// responses tags send back.
//
// Every command is a flat byte sequence:
//
//	[FLAGS, COMMAND_CODE, UID (8 bytes, LSB first), PARAMS...]
//
// Every response starts with a status byte, 0x00 meaning success.
package iso15693

import (
	"encoding/hex"
	"fmt"
)

// Request flags
const (
	FlagHighDataRate byte = 0x02
	FlagAddressed    byte = 0x20
	FlagOption       byte = 0x40
)

// Command codes
const (
	CmdReadSingleBlock  byte = 0x20
	CmdWriteSingleBlock byte = 0x21
	CmdGetSystemInfo    byte = 0x2B
)

// StatusOK is the status byte of a successful response
const StatusOK byte = 0x00

// UIDLength is the length of an ISO15693 UID in bytes
const UIDLength = 8

// defaultFlags is used by every command this package builds
var defaultFlags = BuildFlags(FlagAddressed, FlagHighDataRate)

// BuildFlags combines flag bits into a single flags byte.
func BuildFlags(bits ...byte) byte {
	var flags byte
	for _, b := range bits {
		flags |= b
	}
	return flags
}

// Command is a single ISO15693 request frame.
type Command struct {
	UID    []byte
	Params []byte
	Flags  byte
	Code   byte
}

// Bytes serializes the command as flags, code, UID and params in that order.
func (c Command) Bytes() []byte {
	out := make([]byte, 0, 2+len(c.UID)+len(c.Params))
	out = append(out, c.Flags, c.Code)
	out = append(out, c.UID...)
	out = append(out, c.Params...)
	return out
}

// ReverseUID converts a tag UID reported MSB first as a hex string into the
// LSB-first byte order addressed commands expect.
func ReverseUID(hexUID string) ([]byte, error) {
	if hexUID == "" || len(hexUID)%2 != 0 {
		return nil, fmt.Errorf("%w: %q has length %d", ErrMalformedUID, hexUID, len(hexUID))
	}
	raw, err := hex.DecodeString(hexUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedUID, err)
	}
	reverseBytes(raw)
	return raw, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// BuildReadBlock builds a READ_SINGLE_BLOCK command for the given reversed UID.
func BuildReadBlock(uid []byte, block byte) []byte {
	return Command{
		Flags:  defaultFlags,
		Code:   CmdReadSingleBlock,
		UID:    uid,
		Params: []byte{block},
	}.Bytes()
}

// BuildWriteBlock builds a WRITE_SINGLE_BLOCK command. data must match the
// tag's block size (usually 4 or 8 bytes); the length is not checked here and
// a mismatch surfaces as a tag-level failure.
func BuildWriteBlock(uid []byte, block byte, data []byte) []byte {
	params := make([]byte, 0, 1+len(data))
	params = append(params, block)
	params = append(params, data...)
	return Command{
		Flags:  defaultFlags,
		Code:   CmdWriteSingleBlock,
		UID:    uid,
		Params: params,
	}.Bytes()
}

// BuildGetSystemInfo builds an addressed GET_SYSTEM_INFO command.
func BuildGetSystemInfo(uid []byte) []byte {
	return Command{
		Flags: defaultFlags,
		Code:  CmdGetSystemInfo,
		UID:   uid,
	}.Bytes()
}

// ParseReadResponse returns the block payload of a READ_SINGLE_BLOCK response.
func ParseReadResponse(resp []byte) ([]byte, error) {
	if err := checkStatus("read block", resp); err != nil {
		return nil, err
	}
	out := make([]byte, len(resp)-1)
	copy(out, resp[1:])
	return out, nil
}

// ParseWriteResponse checks the status of a WRITE_SINGLE_BLOCK response.
func ParseWriteResponse(resp []byte) error {
	return checkStatus("write block", resp)
}

func checkStatus(op string, resp []byte) error {
	if len(resp) == 0 {
		return ErrEmptyResponse
	}
	if resp[0] != StatusOK {
		statusErr := &StatusError{Op: op, Status: resp[0]}
		if len(resp) > 1 {
			statusErr.Code = resp[1]
		}
		return statusErr
	}
	return nil
}
