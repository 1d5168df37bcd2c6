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

// Package ndef builds, encodes and decodes NFC Data Exchange Format records
// and messages, and wraps messages in the TLV framing used by block-oriented
// tags.
package ndef

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// TNF is the 3-bit Type Name Format of a record
type TNF byte

// Type Name Formats
const (
	TNFEmpty       TNF = 0x00
	TNFWellKnown   TNF = 0x01
	TNFMimeMedia   TNF = 0x02
	TNFAbsoluteURI TNF = 0x03
	TNFExternal    TNF = 0x04
	TNFUnknown     TNF = 0x05
	TNFUnchanged   TNF = 0x06
	TNFReserved    TNF = 0x07
)

func (t TNF) String() string {
	switch t {
	case TNFEmpty:
		return "empty"
	case TNFWellKnown:
		return "well-known"
	case TNFMimeMedia:
		return "mime-media"
	case TNFAbsoluteURI:
		return "absolute-uri"
	case TNFExternal:
		return "external"
	case TNFUnknown:
		return "unknown"
	case TNFUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("reserved(0x%02X)", byte(t))
	}
}

// Well-known record types
const (
	TypeText = "T"
	TypeURI  = "U"
)

// MIME types with dedicated helpers
const (
	MimeTypeText = "text/plain"
	MimeTypeJSON = "application/json"
)

// Record is a single NDEF record. Type, ID and Payload are raw bytes.
type Record struct {
	Type    []byte
	ID      []byte
	Payload []byte
	TNF     TNF
}

// TypeString returns the record type interpreted as ASCII
func (r Record) TypeString() string {
	return string(r.Type)
}

// NewRecord builds a record from fields given as strings (encoded as UTF-8)
// or byte slices (used as is). A nil field becomes empty.
func NewRecord(tnf TNF, typ, id, payload any) (Record, error) {
	t, err := toBytes("type", typ)
	if err != nil {
		return Record{}, err
	}
	i, err := toBytes("id", id)
	if err != nil {
		return Record{}, err
	}
	p, err := toBytes("payload", payload)
	if err != nil {
		return Record{}, err
	}
	return Record{TNF: tnf, Type: t, ID: i, Payload: p}, nil
}

func toBytes(field string, v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrUnsupportedField, field, v)
	}
}

// TextEncoding selects the character encoding of a text record
type TextEncoding int

// Text encodings
const (
	UTF8 TextEncoding = iota
	UTF16
)

const (
	textStatusUTF16   = 0x80
	textStatusLangLen = 0x3F
	defaultLang       = "en"
)

// Text records are written big-endian without a BOM; a BOM is honored when
// reading.
var (
	utf16BE      = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	utf16WithBOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
)

// TextRecord builds a well-known "T" record. lang defaults to "en" and is cut
// to at most 63 bytes, the most the status byte can describe, without
// splitting a character.
func TextRecord(text, lang string, enc TextEncoding, id string) (Record, error) {
	if lang == "" {
		lang = defaultLang
	}
	if len(lang) > textStatusLangLen {
		cut := textStatusLangLen
		for cut > 0 && !utf8.RuneStart(lang[cut]) {
			cut--
		}
		lang = lang[:cut]
	}

	status := byte(len(lang))
	textBytes := []byte(text)
	if enc == UTF16 {
		status |= textStatusUTF16
		encoded, err := utf16BE.NewEncoder().Bytes(textBytes)
		if err != nil {
			return Record{}, fmt.Errorf("encode UTF-16 text: %w", err)
		}
		textBytes = encoded
	}

	payload := make([]byte, 0, 1+len(lang)+len(textBytes))
	payload = append(payload, status)
	payload = append(payload, lang...)
	payload = append(payload, textBytes...)

	return Record{
		TNF:     TNFWellKnown,
		Type:    []byte(TypeText),
		ID:      []byte(id),
		Payload: payload,
	}, nil
}

// URIRecord builds a well-known "U" record, abbreviating the longest known
// URI prefix.
func URIRecord(uri, id string) Record {
	code, rest := abbreviateURI(uri)
	payload := make([]byte, 0, 1+len(rest))
	payload = append(payload, code)
	payload = append(payload, rest...)
	return Record{
		TNF:     TNFWellKnown,
		Type:    []byte(TypeURI),
		ID:      []byte(id),
		Payload: payload,
	}
}

// MimeRecord builds a MIME media record. payload is a string or []byte.
func MimeRecord(mimeType string, payload any, id string) (Record, error) {
	if mimeType == "" {
		return Record{}, ErrEmptyMimeType
	}
	return NewRecord(TNFMimeMedia, mimeType, id, payload)
}

// JSONRecord serializes value and wraps it in an application/json record.
func JSONRecord(value any, id string) (Record, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrNotSerializable, err)
	}
	return MimeRecord(MimeTypeJSON, data, id)
}

// ExternalRecord builds an NFC Forum external type record of type
// "domain:typ".
func ExternalRecord(domain, typ string, payload any, id string) (Record, error) {
	if domain == "" || typ == "" {
		return Record{}, ErrEmptyExternalType
	}
	return NewRecord(TNFExternal, domain+":"+typ, id, payload)
}

// EmptyRecord returns a TNF_EMPTY record, used to format a blank tag.
func EmptyRecord() Record {
	return Record{TNF: TNFEmpty, Type: []byte{}, ID: []byte{}, Payload: []byte{}}
}
