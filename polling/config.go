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
	"errors"
	"time"

	"github.com/ZaparooProject/go-nfcsession"
)

// ReaderConfig holds configuration options for the Reader
type ReaderConfig struct {
	// Options are passed to the driver when tag events are registered.
	Options *nfcsession.RequestOptions
	// TechnologyOptions are passed to the driver by WithTechnology.
	TechnologyOptions *nfcsession.RequestOptions
	// Cooldown is how long tag discovery stays paused after a tag has been
	// handled.
	Cooldown time.Duration
}

// DefaultReaderConfig returns the default reader configuration
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Cooldown: 1500 * time.Millisecond,
		Options: &nfcsession.RequestOptions{
			IsReaderModeEnabled: true,
		},
		TechnologyOptions: &nfcsession.RequestOptions{
			AlertMessage: "Hold near NFC tag",
		},
	}
}

// Validate checks the configuration for invalid values
func (c *ReaderConfig) Validate() error {
	if c.Cooldown < 0 {
		return errors.New("cooldown cannot be negative")
	}
	if c.Options != nil && c.Options.ReaderModeDelay < 0 {
		return errors.New("reader mode delay cannot be negative")
	}
	return nil
}
