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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/retry"
	"github.com/ZaparooProject/go-nfcsession/ndef"
	"github.com/ZaparooProject/go-nfcsession/polling"
)

const (
	tapRetries    = 200
	tapRetryDelay = 5 * time.Millisecond
)

type scanOptions struct {
	metricsAddr string
	writeText   string
	interval    time.Duration
	duration    time.Duration
	cooldown    time.Duration
	taps        int
}

func (a *app) scanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run reader mode while the fixture tags are tapped in turn",
		Long: "scan starts reader mode and taps each fixture tag in turn. " +
			"With --write-text the first tap receives a text record before it is read.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&opts.interval, "interval", 500*time.Millisecond, "delay between tag taps")
	flags.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 runs until interrupted or all taps are done)")
	flags.DurationVar(&opts.cooldown, "cooldown", polling.DefaultReaderConfig().Cooldown, "reader cooldown after each tag")
	flags.IntVar(&opts.taps, "taps", 0, "number of taps before stopping (0 taps forever)")
	flags.StringVar(&opts.writeText, "write-text", "", "write this text to the next tag")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (a *app) runScan(ctx context.Context, out io.Writer, opts *scanOptions) error {
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	config := polling.DefaultReaderConfig()
	config.Cooldown = opts.cooldown
	reader, err := polling.NewReader(a.engine, config, polling.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	var outMu sync.Mutex
	onTag := func(ctx context.Context, tag *nfcsession.Tag) error {
		records, err := a.radio.ReadNdefMessage(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Str(nfcsession.FieldTagID, tag.ID).Msg("failed to re-read NDEF")
			records = tag.NdefMessage
		}
		outMu.Lock()
		defer outMu.Unlock()
		_, _ = fmt.Fprintf(out, "\n=== Tag %s ===\n", tag.ID)
		printRecords(out, records)
		return nil
	}
	if err := reader.Start(ctx, onTag); err != nil {
		return fmt.Errorf("start reader: %w", err)
	}
	a.logger.Info().Int("tags", len(a.tags)).Msg("reader mode started")

	scanCtx, stopScan := context.WithCancel(ctx)
	defer stopScan()
	g, gctx := errgroup.WithContext(scanCtx)

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	pending := make(chan struct{})
	if opts.writeText != "" {
		g.Go(func() error {
			return a.writeNextTag(gctx, reader, opts.writeText, out, &outMu, pending)
		})
	} else {
		close(pending)
	}

	g.Go(func() error {
		defer stopScan()
		defer func() { _ = reader.Stop() }()
		select {
		case <-pending:
		case <-gctx.Done():
			return nil
		}
		return a.tapTags(gctx, opts)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := reader.Err(); err != nil && !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// writeNextTag queues a text write for the next tapped tag. pending is
// closed once the write is queued.
func (a *app) writeNextTag(
	ctx context.Context,
	reader *polling.Reader,
	text string,
	out io.Writer,
	outMu *sync.Mutex,
	pending chan struct{},
) error {
	msg, err := encodeText(text)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- reader.WriteToNextTag(ctx, a.timeout, func(ctx context.Context, _ *nfcsession.Tag) error {
			return a.radio.WriteNdefMessage(ctx, msg)
		})
	}()

	var (
		result   error
		finished bool
	)
	_, _ = retry.Poll(ctx, time.Millisecond, func() (struct{}, bool, error) {
		select {
		case result = <-done:
			finished = true
			return struct{}{}, false, nil
		default:
		}
		return struct{}{}, !reader.HasPendingWrite(), nil
	})
	close(pending)
	if !finished {
		result = <-done
	}

	switch {
	case result == nil:
		outMu.Lock()
		_, _ = fmt.Fprintln(out, "Write successful!")
		outMu.Unlock()
		return nil
	case ctx.Err() != nil, errors.Is(result, polling.ErrReaderStopped):
		return nil
	default:
		return fmt.Errorf("write to next tag: %w", result)
	}
}

// tapTags discovers each fixture tag in turn until ctx ends or the tap
// budget is spent. A tap is repeated until the reader has registered for tag
// events.
func (a *app) tapTags(ctx context.Context, opts *scanOptions) error {
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for taps := 0; opts.taps == 0 || taps < opts.taps; taps++ {
		tag := a.tags[taps%len(a.tags)]
		_, err := retry.WithRetry(ctx, tapRetries, tapRetryDelay, func() (struct{}, bool, error) {
			return struct{}{}, !a.radio.Discover(tag), nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tap %s: %w", tag.UID(), err)
		}
		a.logger.Debug().Str(nfcsession.FieldTagID, tag.UID()).Msg("tag tapped")

		if opts.taps > 0 && taps+1 == opts.taps {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func encodeText(text string) ([]byte, error) {
	rec, err := ndef.TextRecord(text, "en", ndef.UTF8, "")
	if err != nil {
		return nil, err
	}
	return ndef.Encode(rec)
}
