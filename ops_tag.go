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
)

// GetTag opens a session for techs and returns the tag in the field.
func (e *Engine) GetTag(ctx context.Context, techs ...Tech) (*Tag, error) {
	if len(techs) == 0 {
		techs = ndefTechs
	}
	var tag *Tag
	err := e.exclusive(ctx, techs, func(ctx context.Context) error {
		t, err := e.driver.GetCurrentTag(ctx)
		if err != nil {
			return fmt.Errorf("get current tag: %w", err)
		}
		if t == nil {
			return ErrNoTag
		}
		tag = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Transceive sends a raw NFC-A frame to the tag in the field.
func (e *Engine) Transceive(ctx context.Context, data []byte) ([]byte, error) {
	var resp []byte
	err := e.exclusive(ctx, []Tech{TechNfcA}, func(ctx context.Context) error {
		var err error
		resp, err = e.driver.Transceive(ctx, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
