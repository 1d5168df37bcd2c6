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

// Command nfcsim drives a session engine against simulated ISO15693 tags. It
// exercises the one-shot tag operations and reader mode without hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/virtual"
)

// app holds the state shared by all subcommands
type app struct {
	logger   zerolog.Logger
	registry *prometheus.Registry
	radio    *virtual.Radio
	engine   *nfcsession.Engine
	tags     []*virtual.Tag
	fixtures string
	timeout  time.Duration
	tagIndex int
	debug    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "nfcsim",
		Short:         "Run NFC session operations against simulated tags",
		Long:          "nfcsim loads simulated ISO15693 tags from a YAML fixture file and runs session engine operations against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.fixtures, "fixtures", "f", "", "YAML file describing the simulated tags")
	flags.DurationVar(&a.timeout, "timeout", 2*time.Second, "timeout for each tag operation")
	flags.IntVar(&a.tagIndex, "tag", 0, "index of the fixture tag placed in the field")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.infoCmd(),
		a.sysinfoCmd(),
		a.readBlockCmd(),
		a.writeBlockCmd(),
		a.readNdefCmd(),
		a.writeTextCmd(),
		a.writeURICmd(),
		a.lockCmd(),
		a.scanCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := zerolog.InfoLevel
	if a.debug {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: zerolog.SyncWriter(cmd.ErrOrStderr()), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	tags, err := loadFixtures(a.fixtures)
	if err != nil {
		return err
	}
	a.tags = tags

	a.registry = prometheus.NewRegistry()
	a.radio = virtual.NewRadio(a.logger)
	a.engine, err = nfcsession.New(a.radio,
		nfcsession.WithLogger(a.logger),
		nfcsession.WithMetrics(nfcsession.NewMetrics(a.registry)),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	return nil
}

// fieldTag places the selected fixture tag in the field
func (a *app) fieldTag() (*virtual.Tag, error) {
	if a.tagIndex < 0 || a.tagIndex >= len(a.tags) {
		return nil, fmt.Errorf("tag index %d out of range (have %d tags)", a.tagIndex, len(a.tags))
	}
	tag := a.tags[a.tagIndex]
	a.radio.PlaceTag(tag)
	a.logger.Debug().Str(nfcsession.FieldTagID, tag.UID()).Msg("tag placed in field")
	return tag, nil
}

// opContext returns a context bounded by the operation timeout
func (a *app) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.timeout)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			_, _ = fmt.Fprintln(os.Stderr, "Error: timed out waiting for a tag")
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
