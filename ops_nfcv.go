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

package nfcsession

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-nfcsession/iso15693"
)

// exclusive runs fn inside a one-shot technology session
func (e *Engine) exclusive(ctx context.Context, techs []Tech, fn TechFunc) error {
	return e.Run(ctx, TechJob{Techs: techs, OnTechnology: fn})
}

// withVTag runs fn with the UID of the NFC-V tag in the field.
func (e *Engine) withVTag(ctx context.Context, fn func(ctx context.Context, uid string) error) error {
	return e.exclusive(ctx, []Tech{TechNfcV}, func(ctx context.Context) error {
		tag, err := e.driver.GetCurrentTag(ctx)
		if err != nil {
			return fmt.Errorf("get current tag: %w", err)
		}
		if tag == nil || tag.ID == "" {
			return ErrNoTag
		}
		return fn(ctx, tag.ID)
	})
}

// ReadBlockV reads one block of the NFC-V tag in the field.
func (e *Engine) ReadBlockV(ctx context.Context, block byte) ([]byte, error) {
	var data []byte
	err := e.withVTag(ctx, func(ctx context.Context, uid string) error {
		var err error
		data, err = iso15693.ReadBlock(ctx, e.driver, uid, block)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ReadBlocksV reads blocks [start, end) of the NFC-V tag in the field.
func (e *Engine) ReadBlocksV(ctx context.Context, start byte, end int) ([]byte, error) {
	var data []byte
	err := e.withVTag(ctx, func(ctx context.Context, uid string) error {
		var err error
		data, err = iso15693.ReadBlocks(ctx, e.driver, uid, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteBlockV writes one block of the NFC-V tag in the field.
func (e *Engine) WriteBlockV(ctx context.Context, block byte, data []byte) error {
	return e.withVTag(ctx, func(ctx context.Context, uid string) error {
		return iso15693.WriteBlock(ctx, e.driver, uid, block, data)
	})
}

// WriteBlocksV writes consecutive blocks starting at start.
func (e *Engine) WriteBlocksV(ctx context.Context, start byte, data [][]byte) error {
	return e.withVTag(ctx, func(ctx context.Context, uid string) error {
		return iso15693.WriteBlocks(ctx, e.driver, uid, start, data)
	})
}

// SystemInfoV reads the system information of the NFC-V tag in the field.
func (e *Engine) SystemInfoV(ctx context.Context) (*iso15693.SystemInfo, error) {
	var info *iso15693.SystemInfo
	err := e.withVTag(ctx, func(ctx context.Context, uid string) error {
		var err error
		info, err = iso15693.GetSystemInfo(ctx, e.driver, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
