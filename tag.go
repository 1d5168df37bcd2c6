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
	"strings"

	"github.com/ZaparooProject/go-nfcsession/ndef"
)

// Tech is a tag technology a session can request from the radio
type Tech string

// Supported technologies
const (
	TechNdef             Tech = "Ndef"
	TechNdefFormatable   Tech = "NdefFormatable"
	TechNfcA             Tech = "NfcA"
	TechNfcB             Tech = "NfcB"
	TechNfcF             Tech = "NfcF"
	TechNfcV             Tech = "NfcV"
	TechIsoDep           Tech = "IsoDep"
	TechMifareClassic    Tech = "MifareClassic"
	TechMifareUltralight Tech = "MifareUltralight"
	TechIso15693         Tech = "iso15693"
)

// Tag describes the tag currently in the field as reported by the driver.
type Tag struct {
	ID              string
	Type            string
	TechTypes       []Tech
	NdefMessage     []ndef.Record
	MaxSize         int
	IsWritable      bool
	CanMakeReadOnly bool
}

// NdefCapacity implements ndef.CapacityReporter
func (t *Tag) NdefCapacity() (int, bool) {
	if t == nil || t.MaxSize <= 0 {
		return 0, false
	}
	return t.MaxSize, true
}

// HasTech reports whether the tag advertises the given technology. Android
// reports fully qualified class names, so only the suffix is compared.
func (t *Tag) HasTech(tech Tech) bool {
	if t == nil {
		return false
	}
	for _, tt := range t.TechTypes {
		if tt == tech || strings.HasSuffix(string(tt), "."+string(tech)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the tag.
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	c := *t
	c.TechTypes = append([]Tech(nil), t.TechTypes...)
	if t.NdefMessage != nil {
		c.NdefMessage = make([]ndef.Record, len(t.NdefMessage))
		for i, r := range t.NdefMessage {
			c.NdefMessage[i] = ndef.Record{
				TNF:     r.TNF,
				Type:    append([]byte(nil), r.Type...),
				ID:      append([]byte(nil), r.ID...),
				Payload: append([]byte(nil), r.Payload...),
			}
		}
	}
	return &c
}
