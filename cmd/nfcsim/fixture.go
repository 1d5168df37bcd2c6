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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZaparooProject/go-nfcsession"
	"github.com/ZaparooProject/go-nfcsession/internal/virtual"
	"github.com/ZaparooProject/go-nfcsession/ndef"
)

const (
	defaultBlocks    = 28
	defaultBlockSize = 4
)

// tagFixture describes one simulated tag in the fixture file
type tagFixture struct {
	UID       string   `yaml:"uid"`
	Text      string   `yaml:"text"`
	URI       string   `yaml:"uri"`
	Techs     []string `yaml:"techs"`
	Blocks    int      `yaml:"blocks"`
	BlockSize int      `yaml:"block_size"`
	ReadOnly  bool     `yaml:"read_only"`
}

type fixtureFile struct {
	Tags []tagFixture `yaml:"tags"`
}

// loadFixtures reads the tag fixture file at path. An empty path yields a
// single blank tag.
func loadFixtures(path string) ([]*virtual.Tag, error) {
	if path == "" {
		return []*virtual.Tag{virtual.NewISO15693Tag(virtual.TestEMUID)}, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return parseFixtures(data)
}

func parseFixtures(data []byte) ([]*virtual.Tag, error) {
	var file fixtureFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if len(file.Tags) == 0 {
		return nil, errors.New("fixture file defines no tags")
	}

	tags := make([]*virtual.Tag, 0, len(file.Tags))
	for i, f := range file.Tags {
		tag, err := f.build()
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (f tagFixture) build() (*virtual.Tag, error) {
	if f.Text != "" && f.URI != "" {
		return nil, errors.New("text and uri are mutually exclusive")
	}
	blocks, blockSize := f.Blocks, f.BlockSize
	if blocks == 0 {
		blocks = defaultBlocks
	}
	if blockSize == 0 {
		blockSize = defaultBlockSize
	}

	tag, err := virtual.NewTag(f.UID, blocks, blockSize)
	if err != nil {
		return nil, err
	}
	if len(f.Techs) > 0 {
		techs := make([]nfcsession.Tech, len(f.Techs))
		for i, t := range f.Techs {
			techs[i] = nfcsession.Tech(t)
		}
		tag.SetTechs(techs...)
	}

	switch {
	case f.Text != "":
		rec, err := ndef.TextRecord(f.Text, "en", ndef.UTF8, "")
		if err != nil {
			return nil, err
		}
		err = tag.SetNdef(rec)
		if err != nil {
			return nil, err
		}
	case f.URI != "":
		if err := tag.SetNdef(ndef.URIRecord(f.URI, "")); err != nil {
			return nil, err
		}
	}

	if f.ReadOnly {
		tag.SetReadOnly()
	}
	return tag, nil
}
