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

package virtual

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

// ErrNoSession is returned by tag operations when neither a technology
// session nor a discovered tag is active.
var ErrNoSession = errors.New("no active tag session")

// Stats counts driver calls made against a Radio
type Stats struct {
	Requests    int
	Cancels     int
	Registers   int
	Unregisters int
	Transceives int
}

// Radio is a simulated NFC radio implementing nfcsession.RadioDriver and
// nfcsession.NdefDriver. At most one tag is in the field at a time.
//
// A technology request completes as soon as a tag supporting one of the
// requested technologies is in the field. While tag events are registered,
// Discover hands tags to the installed handler and makes them the active tag.
type Radio struct {
	logger     zerolog.Logger
	field      *Tag
	active     *Tag
	handler    nfcsession.TagHandler
	changed    chan struct{}
	failReq    []error
	failReg    error
	stats      Stats
	mu         sync.Mutex
	techOpen   bool
	registered bool
}

// NewRadio creates a radio with an empty field.
func NewRadio(logger zerolog.Logger) *Radio {
	return &Radio{
		logger:  logger.With().Str("component", "virtual-radio").Logger(),
		changed: make(chan struct{}),
	}
}

// broadcastLocked wakes every pending technology request
func (r *Radio) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// PlaceTag puts tag in the field, replacing any tag already there.
func (r *Radio) PlaceTag(tag *Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.field = tag
	r.broadcastLocked()
}

// RemoveTag empties the field. An open session loses its tag.
func (r *Radio) RemoveTag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.field = nil
	r.active = nil
	r.broadcastLocked()
}

// Discover places tag in the field and, if tag events are registered,
// delivers it to the handler. The handler runs on the calling goroutine.
// It reports whether the tag was delivered.
func (r *Radio) Discover(tag *Tag) bool {
	r.mu.Lock()
	r.field = tag
	r.broadcastLocked()
	handler := r.handler
	if !r.registered || handler == nil {
		r.mu.Unlock()
		return false
	}
	r.active = tag
	r.mu.Unlock()

	r.logger.Debug().Str("tag_id", tag.UID()).Msg("tag discovered")
	handler(tag.AsTag())
	return true
}

// FailNextRequest makes the next technology request fail with err. Calls
// queue up, one error per request.
func (r *Radio) FailNextRequest(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failReq = append(r.failReq, err)
}

// FailRegister makes tag event registration fail with err until it is
// called again with nil.
func (r *Radio) FailRegister(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failReg = err
}

// Stats returns a snapshot of the call counters
func (r *Radio) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// TechOpen reports whether a technology session is open
func (r *Radio) TechOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.techOpen
}

// IsRegistered reports whether tag events are registered
func (r *Radio) IsRegistered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// HasHandler reports whether a tag discovery handler is installed
func (r *Radio) HasHandler() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler != nil
}

// RequestTechnology implements nfcsession.RadioDriver.
func (r *Radio) RequestTechnology(ctx context.Context, techs []nfcsession.Tech, _ *nfcsession.RequestOptions) error {
	r.mu.Lock()
	r.stats.Requests++
	if r.techOpen {
		r.mu.Unlock()
		return nfcsession.ErrTechnologyAlreadyStarted
	}
	if len(r.failReq) > 0 {
		err := r.failReq[0]
		r.failReq = r.failReq[1:]
		r.mu.Unlock()
		return err
	}

	for {
		if r.field != nil && r.field.Supports(techs) {
			r.techOpen = true
			r.active = r.field
			r.mu.Unlock()
			return nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
		r.mu.Lock()
	}
}

// CancelTechnologyRequest implements nfcsession.RadioDriver.
func (r *Radio) CancelTechnologyRequest(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Cancels++
	r.techOpen = false
	if !r.registered {
		r.active = nil
	}
	return nil
}

// RegisterTagEvent implements nfcsession.RadioDriver.
func (r *Radio) RegisterTagEvent(context.Context, *nfcsession.RequestOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReg != nil {
		return r.failReg
	}
	r.stats.Registers++
	r.registered = true
	return nil
}

// UnregisterTagEvent implements nfcsession.RadioDriver.
func (r *Radio) UnregisterTagEvent(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Unregisters++
	r.registered = false
	if !r.techOpen {
		r.active = nil
	}
	return nil
}

// SetTagDiscoveredHandler implements nfcsession.RadioDriver.
func (r *Radio) SetTagDiscoveredHandler(handler nfcsession.TagHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *Radio) activeTag() (*Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, ErrNoSession
	}
	return r.active, nil
}

// Transceive implements nfcsession.RadioDriver. Frames are answered by the
// active tag as ISO15693 requests.
func (r *Radio) Transceive(_ context.Context, data []byte) ([]byte, error) {
	tag, err := r.activeTag()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.stats.Transceives++
	r.mu.Unlock()
	return tag.HandleCommand(data)
}

// GetCurrentTag implements nfcsession.RadioDriver.
func (r *Radio) GetCurrentTag(context.Context) (*nfcsession.Tag, error) {
	tag, err := r.activeTag()
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	return tag.AsTag(), nil
}

// ReadNdefMessage implements nfcsession.NdefDriver.
func (r *Radio) ReadNdefMessage(context.Context) ([]ndef.Record, error) {
	tag, err := r.activeTag()
	if err != nil {
		return nil, err
	}
	return tag.NdefRecords()
}

// WriteNdefMessage implements nfcsession.NdefDriver.
func (r *Radio) WriteNdefMessage(_ context.Context, msg []byte) error {
	tag, err := r.activeTag()
	if err != nil {
		return err
	}
	return tag.WriteNdef(msg)
}

// GetNdefStatus implements nfcsession.NdefDriver.
func (r *Radio) GetNdefStatus(context.Context) (nfcsession.NdefStatus, int, error) {
	tag, err := r.activeTag()
	if err != nil {
		return 0, 0, err
	}
	if !tag.Supports([]nfcsession.Tech{nfcsession.TechNdef}) {
		return nfcsession.NdefNotSupported, 0, nil
	}
	if tag.ReadOnly() {
		return nfcsession.NdefReadOnly, tag.Capacity(), nil
	}
	return nfcsession.NdefReadWrite, tag.Capacity(), nil
}

// MakeReadOnly implements nfcsession.NdefDriver.
func (r *Radio) MakeReadOnly(context.Context) error {
	tag, err := r.activeTag()
	if err != nil {
		return err
	}
	tag.SetReadOnly()
	return nil
}

var (
	_ nfcsession.RadioDriver = (*Radio)(nil)
	_ nfcsession.NdefDriver  = (*Radio)(nil)
)
