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

	"github.com/ZaparooProject/go-nfcsession/ndef"
)

// ndefTechs are requested for every NDEF operation
var ndefTechs = []Tech{TechNdef}

// NdefReadResult is a tag together with its decoded NDEF message
type NdefReadResult struct {
	Tag     *Tag
	Records []ndef.Record
}

func (e *Engine) ndefDriver() (NdefDriver, error) {
	nd, ok := e.driver.(NdefDriver)
	if !ok {
		return nil, ErrNdefUnsupported
	}
	return nd, nil
}

func (e *Engine) withNdef(ctx context.Context, fn func(ctx context.Context, nd NdefDriver) error) error {
	nd, err := e.ndefDriver()
	if err != nil {
		return err
	}
	return e.exclusive(ctx, ndefTechs, func(ctx context.Context) error {
		return fn(ctx, nd)
	})
}

func readMessage(ctx context.Context, nd NdefDriver) ([]ndef.Record, error) {
	records, err := nd.ReadNdefMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("read NDEF message: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoNdefMessage
	}
	return records, nil
}

// ReadNdef reads the NDEF message of the tag in the field.
func (e *Engine) ReadNdef(ctx context.Context) ([]ndef.Record, error) {
	var records []ndef.Record
	err := e.withNdef(ctx, func(ctx context.Context, nd NdefDriver) error {
		var err error
		records, err = readMessage(ctx, nd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadNdefFull reads the tag in the field and its NDEF message in one session.
func (e *Engine) ReadNdefFull(ctx context.Context) (*NdefReadResult, error) {
	var result NdefReadResult
	err := e.withNdef(ctx, func(ctx context.Context, nd NdefDriver) error {
		tag, err := e.driver.GetCurrentTag(ctx)
		if err != nil {
			return fmt.Errorf("get current tag: %w", err)
		}
		if tag == nil {
			return ErrNoTag
		}
		records, err := readMessage(ctx, nd)
		if err != nil {
			return err
		}
		result = NdefReadResult{Tag: tag, Records: records}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// WriteNdef encodes records into one message and writes it to the tag.
func (e *Engine) WriteNdef(ctx context.Context, records ...ndef.Record) error {
	msg, err := ndef.Encode(records...)
	if err != nil {
		return err
	}
	return e.withNdef(ctx, func(ctx context.Context, nd NdefDriver) error {
		if err := nd.WriteNdefMessage(ctx, msg); err != nil {
			return fmt.Errorf("write NDEF message: %w", err)
		}
		return nil
	})
}

// WriteText writes a single text record.
func (e *Engine) WriteText(ctx context.Context, text, lang string, enc ndef.TextEncoding, id string) error {
	r, err := ndef.TextRecord(text, lang, enc, id)
	if err != nil {
		return err
	}
	return e.WriteNdef(ctx, r)
}

// WriteURI writes a single URI record.
func (e *Engine) WriteURI(ctx context.Context, uri, id string) error {
	return e.WriteNdef(ctx, ndef.URIRecord(uri, id))
}

// WriteJSON writes value as a single application/json record.
func (e *Engine) WriteJSON(ctx context.Context, value any, id string) error {
	r, err := ndef.JSONRecord(value, id)
	if err != nil {
		return err
	}
	return e.WriteNdef(ctx, r)
}

// WriteMime writes a single MIME media record.
func (e *Engine) WriteMime(ctx context.Context, mimeType string, payload []byte, id string) error {
	r, err := ndef.MimeRecord(mimeType, payload, id)
	if err != nil {
		return err
	}
	return e.WriteNdef(ctx, r)
}

// WriteExternal writes a single external type record.
func (e *Engine) WriteExternal(ctx context.Context, domain, typ string, payload []byte, id string) error {
	r, err := ndef.ExternalRecord(domain, typ, payload, id)
	if err != nil {
		return err
	}
	return e.WriteNdef(ctx, r)
}

// NdefStatus returns the NDEF status and capacity of the tag in the field.
func (e *Engine) NdefStatus(ctx context.Context) (NdefStatus, int, error) {
	var (
		status   NdefStatus
		capacity int
	)
	err := e.withNdef(ctx, func(ctx context.Context, nd NdefDriver) error {
		var err error
		status, capacity, err = nd.GetNdefStatus(ctx)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return status, capacity, nil
}

// MakeReadOnly permanently locks the NDEF message of the tag in the field.
func (e *Engine) MakeReadOnly(ctx context.Context) error {
	return e.withNdef(ctx, func(ctx context.Context, nd NdefDriver) error {
		return nd.MakeReadOnly(ctx)
	})
}
