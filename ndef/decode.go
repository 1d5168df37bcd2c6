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

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Payload is the decoded content of a record. It is one of TextPayload,
// URIPayload, MimePayload, AbsoluteURIPayload, ExternalPayload or
// UnknownPayload.
type Payload interface {
	Kind() string
	isPayload()
}

// TextPayload is a decoded well-known text record
type TextPayload struct {
	Text string
	Lang string
}

// URIPayload is a decoded well-known URI record with its prefix expanded
type URIPayload struct {
	URI string
}

// MimePayload is a decoded MIME media record. For application/json Data
// holds the parsed value; otherwise it holds the raw payload bytes. Text is
// set for text/* types whose payload is valid UTF-8.
type MimePayload struct {
	Data     any
	Text     *string
	MimeType string
	Raw      []byte
}

// AbsoluteURIPayload is a record whose type field is an absolute URI
type AbsoluteURIPayload struct {
	URI  string
	Data []byte
}

// ExternalPayload is an NFC Forum external type record
type ExternalPayload struct {
	Type string
	Data []byte
}

// UnknownPayload is any record without a dedicated decoding
type UnknownPayload struct {
	Type    string
	Payload []byte
	TNF     TNF
}

func (TextPayload) Kind() string        { return "text" }
func (URIPayload) Kind() string         { return "uri" }
func (MimePayload) Kind() string        { return "mime" }
func (AbsoluteURIPayload) Kind() string { return "abs-uri" }
func (ExternalPayload) Kind() string    { return "external" }
func (UnknownPayload) Kind() string     { return "unknown" }

func (TextPayload) isPayload()        {}
func (URIPayload) isPayload()         {}
func (MimePayload) isPayload()        {}
func (AbsoluteURIPayload) isPayload() {}
func (ExternalPayload) isPayload()    {}
func (UnknownPayload) isPayload()     {}

// DecodeRecord interprets a record by its TNF and type.
func DecodeRecord(r Record) (Payload, error) {
	typ := r.TypeString()

	switch r.TNF {
	case TNFWellKnown:
		switch typ {
		case TypeText:
			return decodeText(r.Payload)
		case TypeURI:
			return URIPayload{URI: expandURI(r.Payload)}, nil
		}
	case TNFMimeMedia:
		return decodeMime(typ, r.Payload)
	case TNFAbsoluteURI:
		return AbsoluteURIPayload{URI: typ, Data: r.Payload}, nil
	case TNFExternal:
		return ExternalPayload{Type: typ, Data: r.Payload}, nil
	}

	return UnknownPayload{TNF: r.TNF, Type: typ, Payload: r.Payload}, nil
}

func decodeText(payload []byte) (TextPayload, error) {
	if len(payload) == 0 {
		return TextPayload{}, ErrInvalidTextRecord
	}
	status := payload[0]
	langEnd := 1 + int(status&textStatusLangLen)
	if langEnd > len(payload) {
		langEnd = len(payload)
	}
	lang := string(payload[1:langEnd])
	body := payload[langEnd:]

	if status&textStatusUTF16 != 0 {
		decoded, err := utf16WithBOM.NewDecoder().Bytes(body)
		if err != nil {
			return TextPayload{}, fmt.Errorf("%w: %w", ErrInvalidTextRecord, err)
		}
		body = decoded
	}
	return TextPayload{Text: string(body), Lang: lang}, nil
}

func decodeMime(mimeType string, payload []byte) (MimePayload, error) {
	if mimeType == MimeTypeJSON {
		var v any
		if err := json.Unmarshal(payload, &v); err != nil {
			return MimePayload{}, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		return MimePayload{MimeType: mimeType, Data: v, Raw: payload}, nil
	}

	p := MimePayload{MimeType: mimeType, Data: payload, Raw: payload}
	if strings.HasPrefix(mimeType, "text/") && utf8.Valid(payload) {
		text := string(payload)
		p.Text = &text
	}
	return p, nil
}

// DecodeJSON unmarshals an application/json record into v. It reports false
// without error when r is not a JSON record; a JSON record whose payload does
// not parse fails with ErrInvalidJSON.
func DecodeJSON(r Record, v any) (bool, error) {
	if r.TNF != TNFMimeMedia || r.TypeString() != MimeTypeJSON {
		return false, nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return true, nil
}
