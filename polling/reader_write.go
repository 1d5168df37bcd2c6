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

package polling

import (
	"context"
	"errors"
	"time"

	"github.com/ZaparooProject/go-nfcsession"
)

// WriteFunc writes to a discovered tag. It runs inside the reader's tag
// handler, so it must use the driver directly rather than engine operations.
type WriteFunc func(ctx context.Context, tag *nfcsession.Tag) error

// WriteRequest represents a pending write operation
type WriteRequest struct {
	ctx       context.Context
	createdAt time.Time
	operation WriteFunc
	result    chan error
}

// WriteToNextTag waits for the next discovered tag and runs operation on it.
// It blocks until the operation completes, times out, is cancelled or the
// reader stops. Only one write can be pending at a time.
func (r *Reader) WriteToNextTag(ctx context.Context, timeout time.Duration, operation WriteFunc) error {
	if operation == nil {
		return errors.New("write operation cannot be nil")
	}
	if !r.State().Running() {
		return ErrReaderNotRunning
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &WriteRequest{
		operation: operation,
		result:    make(chan error, 1),
		ctx:       writeCtx,
		createdAt: time.Now(),
	}
	if err := r.queueWrite(req); err != nil {
		return err
	}
	defer r.pendingWrite.CompareAndSwap(req, nil)

	select {
	case err := <-req.result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// queueWrite places req in the pending write slot. A run that ended after
// the caller's running check has already failed the slot, so the reader is
// checked again once req is in place.
func (r *Reader) queueWrite(req *WriteRequest) error {
	if !r.pendingWrite.CompareAndSwap(nil, req) {
		return ErrWriteAlreadyPending
	}
	if !r.State().Running() {
		r.pendingWrite.CompareAndSwap(req, nil)
		return ErrReaderStopped
	}
	return nil
}

// HasPendingWrite returns true if a write operation is waiting
func (r *Reader) HasPendingWrite() bool {
	return r.pendingWrite.Load() != nil
}

// processPendingWrite runs the pending write, if any, against tag
func (r *Reader) processPendingWrite(tag *nfcsession.Tag) {
	req := r.pendingWrite.Swap(nil)
	if req == nil {
		return
	}

	if err := req.ctx.Err(); err != nil {
		sendWriteResult(req, err)
		return
	}

	err := req.operation(req.ctx, tag)
	if err != nil {
		r.logger.Warn().Err(err).Str(nfcsession.FieldTagID, tag.ID).Msg("pending write failed")
	} else {
		r.logger.Debug().
			Str(nfcsession.FieldTagID, tag.ID).
			Dur("waited", time.Since(req.createdAt)).
			Msg("pending write completed")
	}
	sendWriteResult(req, err)
}

// failPendingWrite completes a pending write with err
func (r *Reader) failPendingWrite(err error) {
	if req := r.pendingWrite.Swap(nil); req != nil {
		sendWriteResult(req, err)
	}
}

func sendWriteResult(req *WriteRequest, err error) {
	select {
	case req.result <- err:
	default:
	}
}
