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
	"context"
	"fmt"
)

// Transceiver sends a raw frame to the tag in the field and returns its
// response. A RadioDriver with an open NFC-V session satisfies it.
type Transceiver interface {
	Transceive(ctx context.Context, data []byte) ([]byte, error)
}

// ReadBlock reads a single block from the tag identified by hexUID.
func ReadBlock(ctx context.Context, t Transceiver, hexUID string, block byte) ([]byte, error) {
	uid, err := ReverseUID(hexUID)
	if err != nil {
		return nil, err
	}
	resp, err := t.Transceive(ctx, BuildReadBlock(uid, block))
	if err != nil {
		return nil, fmt.Errorf("transceive read block %d: %w", block, err)
	}
	return ParseReadResponse(resp)
}

// ReadBlocks reads blocks [start, end) and returns their concatenated payload.
// end may be MaxBlocks to read up to and including block 255.
func ReadBlocks(ctx context.Context, t Transceiver, hexUID string, start byte, end int) ([]byte, error) {
	if end > MaxBlocks {
		return nil, fmt.Errorf("%w: end %d exceeds %d", ErrBlockOutOfRange, end, MaxBlocks)
	}
	if end <= int(start) {
		return []byte{}, nil
	}
	data := make([]byte, 0, (end-int(start))*DefaultBlockSize)
	for block := int(start); block < end; block++ {
		chunk, err := ReadBlock(ctx, t, hexUID, byte(block))
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
	return data, nil
}

// WriteBlock writes data into a single block.
func WriteBlock(ctx context.Context, t Transceiver, hexUID string, block byte, data []byte) error {
	uid, err := ReverseUID(hexUID)
	if err != nil {
		return err
	}
	resp, err := t.Transceive(ctx, BuildWriteBlock(uid, block, data))
	if err != nil {
		return fmt.Errorf("transceive write block %d: %w", block, err)
	}
	return ParseWriteResponse(resp)
}

// WriteBlocks writes consecutive blocks starting at start, one entry of data
// per block. A range running past block 255 fails before anything is sent.
func WriteBlocks(ctx context.Context, t Transceiver, hexUID string, start byte, data [][]byte) error {
	if last := int(start) + len(data) - 1; last >= MaxBlocks {
		i := MaxBlocks - int(start)
		return fmt.Errorf("%w: block %d at index %d", ErrBlockOutOfRange, int(start)+i, i)
	}
	for i, blockData := range data {
		if blockData == nil {
			return fmt.Errorf("%w at index %d", ErrMissingBlockData, i)
		}
		if err := WriteBlock(ctx, t, hexUID, byte(int(start)+i), blockData); err != nil {
			return err
		}
	}
	return nil
}

// GetSystemInfo queries and decodes the tag's system information.
func GetSystemInfo(ctx context.Context, t Transceiver, hexUID string) (*SystemInfo, error) {
	uid, err := ReverseUID(hexUID)
	if err != nil {
		return nil, err
	}
	resp, err := t.Transceive(ctx, BuildGetSystemInfo(uid))
	if err != nil {
		return nil, fmt.Errorf("transceive get system info: %w", err)
	}
	return ParseSystemInfo(resp)
}
