// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package egi_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/egi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRaw builds an int16 file with nch channels and two event channels, "STIM" on at time
// frames 2-3 and "RESP" on at time frame 5.
func writeRaw(t *testing.T, order binary.ByteOrder, nch, frames int, header int32) string {
	t.Helper()

	hdr := egi.Header{
		Version:      egi.Int16,
		Year:         2022,
		Month:        6,
		Day:          1,
		Hour:         8,
		SamplingRate: 250,
		NumChannels:  int16(nch),
		Bits:         12,
		Range:        4096,
		NumSamples:   header,
		NumEvents:    2,
	}

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, order, hdr))
	buf.WriteString("STIMRESP")
	for tf := 0; tf < frames; tf++ {
		for c := 0; c < nch; c++ {
			require.NoError(t, binary.Write(&buf, order, int16(100*c+tf)))
		}
		var stim, resp int16
		if tf == 2 || tf == 3 {
			stim = 1
		}
		if tf == 5 {
			resp = 1
		}
		require.NoError(t, binary.Write(&buf, order, stim))
		require.NoError(t, binary.Write(&buf, order, resp))
	}

	path := filepath.Join(t.TempDir(), "rec.raw")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestByteOrders(t *testing.T) {
	for name, order := range map[string]binary.ByteOrder{"big": binary.BigEndian, "swapped": binary.LittleEndian} {
		t.Run(name, func(t *testing.T) {
			path := writeRaw(t, order, 3, 8, 8)

			r, err := egi.Open(path, nil)
			require.NoError(t, err)
			defer r.Close()

			h := r.Header()
			assert.Equal(t, 8, h.NumTimeFrames)
			assert.Equal(t, 250.0, h.SamplingFrequency)
			assert.Equal(t, 2022, h.StartTime.Year())
			// Odd channel count: no reference channel added.
			assert.Equal(t, []string{"E1", "E2", "E3"}, h.Names())

			m := format.NewMatrix(3, 2)
			require.NoError(t, r.ReadWindow(0, 4, 5, m, 0))
			// Range / 2^Bits == 1.
			assert.Equal(t, []float32{4, 5, 104, 105, 204, 205}, m.Data)

			markers, err := r.Markers()
			require.NoError(t, err)
			assert.Equal(t, []format.Marker{
				{From: 2, To: 3, Code: 1, Name: "STIM", Type: format.Trigger},
				{From: 5, To: 5, Code: 2, Name: "RESP", Type: format.Trigger},
			}, markers)
		})
	}
}

func TestReferenceChannelAndSizeRecovery(t *testing.T) {
	// The header claims more samples than the file holds.
	path := writeRaw(t, binary.BigEndian, 4, 6, 1000)

	h, err := egi.Format{}.ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, 6, h.NumTimeFrames)
	assert.Equal(t, []string{"E1", "E2", "E3", "E4", "VREF"}, h.Names())

	r, err := egi.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()
	m := format.NewMatrix(5, 6)
	for i := range m.Data {
		m.Data[i] = 99
	}
	require.NoError(t, r.ReadWindow(0, 0, 5, m, 0))
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, m.Row(4))
	assert.Equal(t, float32(305), m.At(3, 5))
}

func TestRejects(t *testing.T) {
	dir := t.TempDir()

	foreign := filepath.Join(dir, "foreign.raw")
	require.NoError(t, os.WriteFile(foreign, []byte{0x55, 0xAA, 0, 0, 0, 0, 0, 0}, 0o644))
	_, err := egi.Open(foreign, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, egi.Header{Version: 3, NumChannels: 1}))
	segmented := filepath.Join(dir, "segmented.raw")
	require.NoError(t, os.WriteFile(segmented, buf.Bytes(), 0o644))
	_, err = egi.Open(segmented, nil)
	require.ErrorIs(t, err, format.ErrUnsupported)
}
