// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package neuroscan_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/neuroscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nch    = 2
	frames = 6
	origin = neuroscan.SetupSize + nch*neuroscan.ElectrodeSize
)

type event struct {
	stim   uint16
	key    uint8
	packed uint8
	tf     int
}

// raw is the stored value of channel c at time frame tf.
func raw(c, tf int) int16 {
	if c == 0 {
		return int16(10 + 5*tf)
	}
	return int16(-tf)
}

func writeCNT(t *testing.T, channelOffset int, tableType byte, events []event) string {
	t.Helper()
	le := binary.LittleEndian

	dataBytes := frames * nch * 2
	stride := 19
	if tableType == 1 {
		stride = 8
	}
	buf := make([]byte, origin+dataBytes+9+len(events)*stride)

	copy(buf, "Version 3.0")
	copy(buf[225:], "05/06/21")
	copy(buf[235:], "07:08:09")
	le.PutUint16(buf[370:], nch)
	le.PutUint16(buf[376:], 500)
	le.PutUint32(buf[864:], frames)
	le.PutUint32(buf[886:], uint32(origin+dataBytes))
	le.PutUint32(buf[894:], uint32(channelOffset))

	for c, label := range []string{"Fz", "Cz"} {
		e := buf[neuroscan.SetupSize+c*neuroscan.ElectrodeSize:]
		copy(e, label)
		if c == 1 {
			e[14] = 1
		}
		le.PutUint16(e[47:], uint16(10*(1-c)))
		le.PutUint32(e[59:], math.Float32bits(2))
		le.PutUint32(e[71:], math.Float32bits(102.4))
	}

	bf := max(1, channelOffset/2)
	for tf := 0; tf < frames; tf++ {
		block, j := tf/bf, tf%bf
		for c := 0; c < nch; c++ {
			at := origin + (block*bf*nch+c*bf+j)*2
			le.PutUint16(buf[at:], uint16(raw(c, tf)))
		}
	}

	table := buf[origin+dataBytes:]
	table[0] = tableType
	le.PutUint32(table[1:], uint32(len(events)*stride))
	for i, ev := range events {
		e := table[9+i*stride:]
		le.PutUint16(e, ev.stim)
		e[2] = ev.key
		e[3] = ev.packed
		pos := ev.tf
		if tableType != 3 {
			pos = origin + ev.tf*nch*2
		}
		le.PutUint32(e[4:], uint32(pos))
	}

	path := filepath.Join(t.TempDir(), "rec.cnt")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

var events = []event{
	{stim: 7, packed: 0xC0, tf: 2},
	{key: 3, packed: 0xC0, tf: 4},
	{stim: 9, packed: 0xD0, tf: 1},
	{stim: 11, tf: 50},
	{packed: 0xC5, tf: 5},
}

func TestLayouts(t *testing.T) {
	for name, channelOffset := range map[string]int{"multiplexed": 2, "blocked": 4} {
		t.Run(name, func(t *testing.T) {
			r, err := neuroscan.Open(writeCNT(t, channelOffset, 2, events), nil)
			require.NoError(t, err)
			defer r.Close()

			h := r.Header()
			assert.Equal(t, []string{"Fz", "Cz"}, h.Names())
			assert.Equal(t, frames, h.NumTimeFrames)
			assert.Equal(t, 500.0, h.SamplingFrequency)
			assert.Equal(t, time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC), h.StartTime)
			assert.True(t, h.Channels[1].Bad)

			// Gain is 2 * 102.4 / 204.8 == 1.
			m := format.NewMatrix(2, 5)
			require.NoError(t, r.ReadWindow(0, 1, 5, m, 0))
			for k := 0; k < 5; k++ {
				assert.InDelta(t, 5*float64(k+1), m.At(0, k), 1e-4)
				assert.InDelta(t, -float64(k+1), m.At(1, k), 1e-4)
			}
		})
	}
}

func TestEventTables(t *testing.T) {
	want := []format.Marker{
		{From: 2, To: 2, Code: 7, Name: "7", Type: format.Trigger},
		{From: 4, To: 4, Code: 3, Name: "key 3", Type: format.Event},
		{From: 5, To: 5, Code: 5, Name: "keypad 5", Type: format.Event},
	}
	for _, typ := range []byte{1, 2, 3} {
		r, err := neuroscan.Open(writeCNT(t, 2, typ, events), nil)
		require.NoError(t, err)

		got, err := r.Markers()
		require.NoError(t, err)
		assert.Equal(t, want, got, "table type %d", typ)

		_, evs, err := r.Events()
		require.NoError(t, err)
		require.Len(t, evs, len(events))
		assert.Equal(t, uint8(neuroscan.Rejected), evs[2].Accept)
		assert.Equal(t, uint8(5), evs[4].KeyPad)
		require.NoError(t, r.Close())
	}
}

func TestRejects(t *testing.T) {
	path := writeCNT(t, 2, 9, nil)
	r, err := neuroscan.Open(path, nil)
	require.NoError(t, err)
	_, err = r.Markers()
	require.ErrorIs(t, err, format.ErrUnsupported)
	require.NoError(t, r.Close())

	foreign := filepath.Join(t.TempDir(), "foreign.cnt")
	require.NoError(t, os.WriteFile(foreign, make([]byte, 1000), 0o644))
	_, err = neuroscan.Open(foreign, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)
}
