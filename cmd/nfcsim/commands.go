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
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/iso15693"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the tag in the field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			tag, err := a.engine.GetTag(ctx)
			if err != nil {
				return fmt.Errorf("get tag: %w", err)
			}
			printTag(cmd.OutOrStdout(), tag)
			return nil
		},
	}
}

func (a *app) sysinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "Read ISO15693 system information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			info, err := a.engine.SystemInfoV(ctx)
			if err != nil {
				return fmt.Errorf("get system info: %w", err)
			}
			out := cmd.OutOrStdout()
			if info.UID != nil {
				_, _ = fmt.Fprintf(out, "UID:          %s\n", *info.UID)
			}
			_, _ = fmt.Fprintf(out, "Manufacturer: %s\n", info.Manufacturer)
			if info.NumberOfBlocks != nil && info.BlockSize != nil {
				_, _ = fmt.Fprintf(out, "Blocks:       %d x %d bytes\n", *info.NumberOfBlocks, *info.BlockSize)
			}
			_, _ = fmt.Fprintf(out, "Memory:       %d bytes\n", info.MemorySize())
			return nil
		},
	}
}

func (a *app) readBlockCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "read-block <block>",
		Short: "Read one or more blocks as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[0])
			if err != nil {
				return err
			}
			if count < 1 || int(block)+count > iso15693.MaxBlocks {
				return fmt.Errorf("invalid block count %d", count)
			}
			if _, err = a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			var data []byte
			if count == 1 {
				data, err = a.engine.ReadBlockV(ctx, block)
			} else {
				data, err = a.engine.ReadBlocksV(ctx, block, int(block)+count)
			}
			if err != nil {
				return fmt.Errorf("read block %d: %w", block, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.ToUpper(hex.EncodeToString(data)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of blocks to read")
	return cmd
}

func (a *app) writeBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-block <block> <hex>",
		Short: "Write hex data to a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[0])
			if err != nil {
				return err
			}
			data, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("invalid block data: %w", err)
			}
			if _, err = a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			if err := a.engine.WriteBlockV(ctx, block, data); err != nil {
				return fmt.Errorf("write block %d: %w", block, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to block %d\n", len(data), block)
			return nil
		},
	}
}

func (a *app) readNdefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-ndef",
		Short: "Read and decode the NDEF message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			records, err := a.engine.ReadNdef(ctx)
			if err != nil {
				return fmt.Errorf("read NDEF: %w", err)
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func (a *app) writeTextCmd() *cobra.Command {
	var (
		lang  string
		utf16 bool
	)
	cmd := &cobra.Command{
		Use:   "write-text <text>",
		Short: "Write a text record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			enc := ndef.UTF8
			if utf16 {
				enc = ndef.UTF16
			}
			if err := a.engine.WriteText(ctx, args[0], lang, enc, ""); err != nil {
				return fmt.Errorf("write text: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Write successful!")
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "language code of the text record")
	cmd.Flags().BoolVar(&utf16, "utf16", false, "encode the text as UTF-16")
	return cmd
}

func (a *app) writeURICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-uri <uri>",
		Short: "Write a URI record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			if err := a.engine.WriteURI(ctx, args[0], ""); err != nil {
				return fmt.Errorf("write uri: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Write successful!")
			return nil
		},
	}
}

func (a *app) lockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Make the tag permanently read-only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.fieldTag(); err != nil {
				return err
			}
			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			if err := a.engine.MakeReadOnly(ctx); err != nil {
				return fmt.Errorf("make read-only: %w", err)
			}
			status, capacity, err := a.engine.NdefStatus(ctx)
			if err != nil {
				return fmt.Errorf("NDEF status: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Tag is now %s (%d bytes)\n", status, capacity)
			return nil
		},
	}
}

func parseBlock(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", s, err)
	}
	return byte(n), nil
}

func printTag(w io.Writer, tag *nfcsession.Tag) {
	_, _ = fmt.Fprintf(w, "ID:       %s\n", tag.ID)
	_, _ = fmt.Fprintf(w, "Type:     %s\n", tag.Type)
	techs := make([]string, len(tag.TechTypes))
	for i, t := range tag.TechTypes {
		techs[i] = string(t)
	}
	_, _ = fmt.Fprintf(w, "Techs:    %s\n", strings.Join(techs, ", "))
	_, _ = fmt.Fprintf(w, "Size:     %d bytes\n", tag.MaxSize)
	_, _ = fmt.Fprintf(w, "Writable: %t\n", tag.IsWritable)
}

func printRecords(w io.Writer, records []ndef.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "No records")
		return
	}
	for i, rec := range records {
		payload, err := ndef.DecodeRecord(rec)
		if err != nil {
			_, _ = fmt.Fprintf(w, "[%d] %s: undecodable: %v\n", i, rec.TNF, err)
			continue
		}
		switch p := payload.(type) {
		case ndef.TextPayload:
			_, _ = fmt.Fprintf(w, "[%d] text (%s): %s\n", i, p.Lang, p.Text)
		case ndef.URIPayload:
			_, _ = fmt.Fprintf(w, "[%d] uri: %s\n", i, p.URI)
		case ndef.MimePayload:
			_, _ = fmt.Fprintf(w, "[%d] mime %s: %d bytes\n", i, p.MimeType, len(p.Raw))
		case ndef.ExternalPayload:
			_, _ = fmt.Fprintf(w, "[%d] external %s: %X\n", i, p.Type, p.Data)
		default:
			_, _ = fmt.Fprintf(w, "[%d] %s\n", i, payload.Kind())
		}
	}
}
