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

// Package virtual provides simulated NFC tags and a simulated radio driver
// for tests and the nfcsim command.
package virtual

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/iso15693"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

// Tag errors
var (
	ErrBlockOutOfRange = errors.New("block out of range")
	ErrReadOnly        = errors.New("tag is read-only")
	ErrNoResponse      = errors.New("tag did not respond")
	ErrTooLarge        = errors.New("NDEF message exceeds tag capacity")
)

// Tag is a simulated ISO15693 tag with block memory. Its NDEF message, if
// any, is stored TLV-wrapped from block 0.
type Tag struct {
	uid       string
	uidLSB    []byte
	tagType   string
	techs     []nfcsession.Tech
	memory    [][]byte
	blockSize int
	mu        sync.Mutex
	readOnly  bool

	DSFID       byte
	AFI         byte
	ICReference byte
}

// NewTag creates a blank tag. uid is MSB-first hex.
func NewTag(uid string, blocks, blockSize int) (*Tag, error) {
	uid = strings.ToUpper(uid)
	lsb, err := iso15693.ReverseUID(uid)
	if err != nil {
		return nil, err
	}
	if len(lsb) != iso15693.UIDLength {
		return nil, fmt.Errorf("uid must be %d bytes, got %d", iso15693.UIDLength, len(lsb))
	}
	if blocks <= 0 || blocks > 256 {
		return nil, fmt.Errorf("block count must be 1-256, got %d", blocks)
	}
	if blockSize <= 0 || blockSize > 32 {
		return nil, fmt.Errorf("block size must be 1-32, got %d", blockSize)
	}

	memory := make([][]byte, blocks)
	for i := range memory {
		memory[i] = make([]byte, blockSize)
	}
	return &Tag{
		uid:       uid,
		uidLSB:    lsb,
		tagType:   "ISO15693",
		techs:     []nfcsession.Tech{nfcsession.TechNfcV, nfcsession.TechNdef},
		memory:    memory,
		blockSize: blockSize,
	}, nil
}

// NewISO15693Tag creates an ICODE SLIX sized tag (28 blocks of 4 bytes).
func NewISO15693Tag(uid string) *Tag {
	t, err := NewTag(uid, 28, 4)
	if err != nil {
		panic(err)
	}
	return t
}

// UID returns the tag UID as MSB-first hex
func (t *Tag) UID() string {
	return t.uid
}

// SetTechs replaces the technologies the tag advertises
func (t *Tag) SetTechs(techs ...nfcsession.Tech) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.techs = append([]nfcsession.Tech(nil), techs...)
}

// Supports reports whether the tag advertises any of techs
func (t *Tag) Supports(techs []nfcsession.Tech) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, want := range techs {
		for _, have := range t.techs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Capacity returns the user memory size in bytes
func (t *Tag) Capacity() int {
	return len(t.memory) * t.blockSize
}

// ReadBlock returns a copy of a memory block
func (t *Tag) ReadBlock(block int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if block < 0 || block >= len(t.memory) {
		return nil, fmt.Errorf("%w: %d", ErrBlockOutOfRange, block)
	}
	return bytes.Clone(t.memory[block]), nil
}

// WriteBlock stores data in a block. data must be exactly one block long.
func (t *Tag) WriteBlock(block int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeBlockLocked(block, data)
}

func (t *Tag) writeBlockLocked(block int, data []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if block < 0 || block >= len(t.memory) {
		return fmt.Errorf("%w: %d", ErrBlockOutOfRange, block)
	}
	if len(data) != t.blockSize {
		return fmt.Errorf("data must be exactly %d bytes, got %d", t.blockSize, len(data))
	}
	copy(t.memory[block], data)
	return nil
}

// SetReadOnly locks every block
func (t *Tag) SetReadOnly() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readOnly = true
}

// ReadOnly reports whether the tag is locked
func (t *Tag) ReadOnly() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readOnly
}

// WriteNdef stores an encoded NDEF message TLV-wrapped from block 0 and
// zeroes the rest of the memory.
func (t *Tag) WriteNdef(msg []byte) error {
	wrapped, err := ndef.WrapTLV(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readOnly {
		return ErrReadOnly
	}
	if len(wrapped) > len(t.memory)*t.blockSize {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrTooLarge, len(wrapped), len(t.memory)*t.blockSize)
	}
	for i := range t.memory {
		block := make([]byte, t.blockSize)
		start := i * t.blockSize
		if start < len(wrapped) {
			copy(block, wrapped[start:])
		}
		if err := t.writeBlockLocked(i, block); err != nil {
			return err
		}
	}
	return nil
}

// SetNdef encodes records and stores them as the tag's NDEF message.
func (t *Tag) SetNdef(records ...ndef.Record) error {
	msg, err := ndef.Encode(records...)
	if err != nil {
		return err
	}
	return t.WriteNdef(msg)
}

// NdefRecords decodes the NDEF message stored in memory. It returns nil
// without error for a tag that holds no NDEF message.
func (t *Tag) NdefRecords() ([]ndef.Record, error) {
	t.mu.Lock()
	raw := make([]byte, 0, len(t.memory)*t.blockSize)
	for _, block := range t.memory {
		raw = append(raw, block...)
	}
	t.mu.Unlock()

	msg, err := ndef.ExtractTLV(raw)
	if errors.Is(err, ndef.ErrNoNDEF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(msg) == 0 {
		return nil, nil
	}
	return ndef.Decode(msg)
}

// HandleCommand answers an ISO15693 request frame the way a tag would.
// Frames addressed to another UID get no response.
func (t *Tag) HandleCommand(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return BuildErrorResponse(ErrCodeNotRecognized), nil
	}
	flags, cmd := frame[0], frame[1]
	params := frame[2:]

	if flags&iso15693.FlagAddressed != 0 {
		if len(params) < iso15693.UIDLength {
			return BuildErrorResponse(ErrCodeNotRecognized), nil
		}
		if !bytes.Equal(params[:iso15693.UIDLength], t.uidLSB) {
			return nil, ErrNoResponse
		}
		params = params[iso15693.UIDLength:]
	}

	switch cmd {
	case iso15693.CmdReadSingleBlock:
		if len(params) < 1 {
			return BuildErrorResponse(ErrCodeNotRecognized), nil
		}
		data, err := t.ReadBlock(int(params[0]))
		if err != nil {
			return BuildErrorResponse(ErrCodeBlockUnavailable), nil
		}
		return BuildOKResponse(data), nil

	case iso15693.CmdWriteSingleBlock:
		if len(params) < 1 {
			return BuildErrorResponse(ErrCodeNotRecognized), nil
		}
		err := t.WriteBlock(int(params[0]), params[1:])
		switch {
		case err == nil:
			return BuildOKResponse(nil), nil
		case errors.Is(err, ErrReadOnly):
			return BuildErrorResponse(ErrCodeBlockLocked), nil
		case errors.Is(err, ErrBlockOutOfRange):
			return BuildErrorResponse(ErrCodeBlockUnavailable), nil
		default:
			return BuildErrorResponse(ErrCodeWriteFailed), nil
		}

	case iso15693.CmdGetSystemInfo:
		return BuildSystemInfoResponse(t.uidLSB, t.DSFID, t.AFI, len(t.memory), t.blockSize, t.ICReference), nil

	default:
		return BuildErrorResponse(ErrCodeNotSupported), nil
	}
}

// AsTag describes the tag the way a radio driver reports it.
func (t *Tag) AsTag() *nfcsession.Tag {
	records, _ := t.NdefRecords()

	t.mu.Lock()
	defer t.mu.Unlock()
	return &nfcsession.Tag{
		ID:              t.uid,
		Type:            t.tagType,
		TechTypes:       append([]nfcsession.Tech(nil), t.techs...),
		NdefMessage:     records,
		MaxSize:         len(t.memory) * t.blockSize,
		IsWritable:      !t.readOnly,
		CanMakeReadOnly: !t.readOnly,
	}
}

// UIDBytes returns the UID in wire (LSB-first) order
func (t *Tag) UIDBytes() []byte {
	return bytes.Clone(t.uidLSB)
}

// String implements fmt.Stringer
func (t *Tag) String() string {
	return fmt.Sprintf("%s %s (%d x %d bytes)", t.tagType, t.uid, len(t.memory), t.blockSize)
}
