// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// magicFormat accepts files starting with its magic.
type magicFormat struct {
	name  string
	magic string
}

func (f magicFormat) Name() string         { return f.name }
func (f magicFormat) Extensions() []string { return []string{".raw"} }

func (f magicFormat) ReadHeader(path string) (*format.Header, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(b, []byte(f.magic)) {
		return nil, fmt.Errorf("%s: %w", f.name, format.ErrNotRecognized)
	}
	return &format.Header{Format: f.name}, nil
}

func (f magicFormat) Open(path string, _ *format.Options) (format.Reader, error) {
	if _, err := f.ReadHeader(path); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestRegistryPriority(t *testing.T) {
	reg := format.NewRegistry(magicFormat{"first", "AAAA"}, magicFormat{"second", "BBBB"})

	dir := t.TempDir()
	a := filepath.Join(dir, "a.raw")
	b := filepath.Join(dir, "b.RAW")
	c := filepath.Join(dir, "c.raw")
	require.NoError(t, os.WriteFile(a, []byte("AAAA...."), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("BBBB...."), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("CCCC...."), 0o644))

	_, f, err := reg.Open(a, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", f.Name())

	hdr, f, err := reg.ReadHeader(b)
	require.NoError(t, err)
	assert.Equal(t, "second", f.Name())
	assert.Equal(t, "second", hdr.Format)

	_, _, err = reg.Open(c, nil)
	require.ErrorIs(t, err, format.ErrUnknownFormat)

	_, _, err = reg.Open(filepath.Join(dir, "missing.raw"), nil)
	require.ErrorIs(t, err, format.ErrUnreadable)

	_, ok := reg.ByName("SECOND")
	assert.True(t, ok)
	assert.Len(t, reg.Formats(), 2)
}
