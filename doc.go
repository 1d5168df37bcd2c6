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

/*
Package nfcsession coordinates access to a single NFC radio.

A radio can serve one session at a time. The Engine serializes sessions on
top of a RadioDriver, tracks their state and guarantees that every session
releases the radio when it ends, whether it succeeded, failed or was
cancelled.

Features:
  - One-shot and looping technology sessions
  - One-shot and looping tag discovery (reader mode) with a cooldown
  - A single retry slot: a job submitted while a loop is stopping runs
    once the loop has drained, and the last submission wins
  - One-shot NFC-V block, system information and NDEF operations
  - State change subscriptions and Prometheus metrics

Basic Usage:

	engine, err := nfcsession.New(driver,
	    nfcsession.WithLogger(logger),
	    nfcsession.WithMetrics(nfcsession.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
	    return err
	}

	// Read the NDEF message of the next tag
	records, err := engine.ReadNdef(ctx)
	if err != nil {
	    return err
	}

	// Or run a technology session directly
	err = engine.StartTech(ctx, []nfcsession.Tech{nfcsession.TechNfcV},
	    func(ctx context.Context) error {
	        data, err := engine.Driver().Transceive(ctx, frame)
	        ...
	    }, nil, nil)

Reader Mode:

The polling package runs tag discovery on an engine with a cooldown after
every tag and a single pending write slot. See polling.Reader.

Error Handling:

Session failures wrap ErrSessionFailed in a *SessionError that names the
strategy and step that failed, and keep the cause:

	if errors.Is(err, nfcsession.ErrSessionBusy) {
	    // Another session owns the radio
	}

	var serr *nfcsession.SessionError
	if errors.As(err, &serr) {
	    log.Printf("%s failed during %s", serr.Strategy, serr.Op)
	}

Thread Safety:

Engine methods are safe for concurrent use. Tag operations must not be
called from inside a session callback; use the driver passed through the
engine instead.
*/
package nfcsession
