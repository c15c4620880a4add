// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package erpss_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/erpss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source(nch, frames int) *format.Memory {
	hdr := &format.Header{NumTimeFrames: frames, SamplingFrequency: 250}
	for _, name := range []string{"Fz", "Cz", "Pz", "Oz"}[:nch] {
		hdr.Channels = append(hdr.Channels, format.Channel{Name: name, Gain: 1})
	}
	hdr.SingleSession(0)
	m := format.NewMatrix(nch, frames)
	for c := 0; c < nch; c++ {
		for tf := 0; tf < frames; tf++ {
			m.Set(c, tf, float32((tf%50)*(c+1))-20)
		}
	}
	return &format.Memory{Hdr: hdr, Data: m}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"rec.raw", "rec.rdf"} {
		t.Run(name, func(t *testing.T) {
			src := source(3, 600)
			markers := []format.Marker{
				{From: 10, To: 10, Code: 3, Name: "3", Type: format.Trigger},
				{From: 300, To: 300, Code: 7, Name: "7", Type: format.Trigger},
			}
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, erpss.Format{}.Export(path, src, markers))

			r, err := erpss.Open(path, nil)
			require.NoError(t, err)
			defer r.Close()

			h := r.Header()
			assert.Equal(t, 600, h.NumTimeFrames)
			assert.Equal(t, 250.0, h.SamplingFrequency)
			assert.Equal(t, []string{"Fz", "Cz", "Pz"}, h.Names())
			require.Len(t, h.Sessions, 1)
			assert.False(t, h.Sessions[0].Ghost)
			assert.Equal(t, 600, h.Sessions[0].NumTimeFrames)
			assert.Equal(t, name == "rec.rdf", r.Native().Compressed())

			// Spans the first block boundary.
			m := format.NewMatrix(3, 20)
			require.NoError(t, r.ReadWindow(0, 250, 269, m, 0))
			step := h.Channels[0].Gain
			for c := 0; c < 3; c++ {
				for k := 0; k < 20; k++ {
					assert.InDelta(t, src.Data.At(c, 250+k), m.At(c, k), step)
				}
			}

			got, err := r.Markers()
			require.NoError(t, err)
			assert.Equal(t, markers, got)
		})
	}
}

func TestSessionsFromCodes(t *testing.T) {
	bh := erpss.BlockHeader{
		Magic:         erpss.MagicRaw,
		NumChannels:   2,
		NumTimeFrames: 8,
		ClockPeriod:   2000,
		PayloadSize:   32,
		NumEvents:     2,
		Calibration:   0.5,
	}
	bh.Events[0] = erpss.Event{TimeFrame: 3, Code: erpss.CodeStart}
	bh.Events[1] = erpss.Event{TimeFrame: 5, Code: 5}
	copy(bh.Names[0][:], "Fz")
	copy(bh.Names[1][:], "Cz")

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &bh))
	for tf := 0; tf < 8; tf++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, []int16{int16(tf), int16(-tf)}))
	}
	path := filepath.Join(t.TempDir(), "rec.raw")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	r, err := erpss.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, 500.0, h.SamplingFrequency)
	require.Len(t, h.Sessions, 2)
	assert.True(t, h.Sessions[0].Ghost)
	assert.Equal(t, 3, h.Sessions[0].NumTimeFrames)
	assert.Equal(t, 3, h.Sessions[1].FirstTimeFrame)
	assert.Equal(t, 5, h.Sessions[1].NumTimeFrames)

	m := format.NewMatrix(2, 2)
	require.NoError(t, r.ReadWindow(1, 0, 1, m, 0))
	assert.Equal(t, []float32{1.5, 2, -1.5, -2}, m.Data)

	markers, err := r.Markers()
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{{From: 5, To: 5, Code: 5, Name: "5", Type: format.Trigger}}, markers)
}

func TestRejects(t *testing.T) {
	dir := t.TempDir()

	foreign := filepath.Join(dir, "foreign.raw")
	require.NoError(t, os.WriteFile(foreign, make([]byte, 1024), 0o644))
	_, err := erpss.Open(foreign, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &erpss.BlockHeader{Magic: erpss.MagicRaw, NumChannels: 65}))
	wide := filepath.Join(dir, "wide.raw")
	require.NoError(t, os.WriteFile(wide, buf.Bytes(), 0o644))
	_, err = erpss.Open(wide, nil)
	require.ErrorIs(t, err, format.ErrUnsupported)

	require.ErrorIs(t, erpss.Write(&bytes.Buffer{}, &format.Memory{
		Hdr: &format.Header{Channels: make([]format.Channel, 65)},
	}, nil, false), format.ErrUnsupported)
}
