// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package micromed_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/micromed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	codeStart      = 640
	electrodeStart = 656
	triggerStart   = 1040
	noteStart      = 1100
	dataStart      = 1200
)

func electrode(label string, accepted bool, unit int16, physMin, physMax int32) micromed.Electrode {
	e := micromed.Electrode{
		LogicMin:    0,
		LogicMax:    65535,
		LogicGround: 32768,
		PhysicalMin: physMin,
		PhysicalMax: physMax,
		Unit:        unit,
	}
	if accepted {
		e.Status = 1
	}
	copy(e.PositiveInput[:], label)
	return e
}

func put(buf []byte, off int, v any) {
	var b bytes.Buffer
	if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	copy(buf[off:], b.Bytes())
}

// writeTRC stores three channels in the order ECG, Fp1, Fp2 with electrode indexes 2, 0, 1.
func writeTRC(t *testing.T, mutate func(h *micromed.Header)) string {
	t.Helper()

	h := micromed.Header{
		Day:         6,
		Month:       5,
		Year:        121,
		Hour:        7,
		Minute:      8,
		Second:      9,
		DataStart:   dataStart,
		NumChannels: 3,
		Multiplexer: 6,
		Rate:        256,
		Bytes:       2,
		HeaderType:  4,
	}
	copy(h.Title[:], "* MICROMED  Brain-Quick file *")
	h.Code = micromed.Descriptor{Start: codeStart, Length: 6}
	h.Electrode = micromed.Descriptor{Start: electrodeStart, Length: 3 * micromed.ElectrodeSize}
	h.Trigger = micromed.Descriptor{Start: triggerStart, Length: 30}
	h.Note = micromed.Descriptor{Start: noteStart, Length: 88}
	copy(h.Code.Name[:], "ORDER   ")
	if mutate != nil {
		mutate(&h)
	}

	const frames = 4
	buf := make([]byte, dataStart+frames*6)
	put(buf, 0, h)
	put(buf, codeStart, []uint16{2, 0, 1})
	put(buf, electrodeStart, []micromed.Electrode{
		electrode("Fp1", true, 0, -3200, 3200),
		electrode("Fp2", false, 0, -3200, 3200),
		electrode("ECG", true, 1, -5, 5),
	})
	put(buf, triggerStart, []uint32{1})
	put(buf, triggerStart+4, uint16(5))
	put(buf, triggerStart+6, []uint32{3})
	put(buf, triggerStart+10, uint16(9))
	put(buf, triggerStart+12, []uint32{100})
	put(buf, triggerStart+16, uint16(7))
	put(buf, triggerStart+18, []uint32{0xFFFFFFFF})
	put(buf, triggerStart+24, []uint32{2})
	put(buf, noteStart, uint32(2))
	copy(buf[noteStart+4:], "eyes closed")

	for tf := 0; tf < frames; tf++ {
		put(buf, dataStart+tf*6, []uint16{uint16(32768 + tf), uint16(32768 + 10*tf), uint16(32768 - tf)})
	}

	path := filepath.Join(t.TempDir(), "rec.trc")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpen(t *testing.T) {
	r, err := micromed.Open(writeTRC(t, nil), nil)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, []string{"Fp1", "Fp2", "ECG"}, h.Names())
	assert.Equal(t, 4, h.NumTimeFrames)
	assert.Equal(t, 256.0, h.SamplingFrequency)
	assert.Equal(t, time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC), h.StartTime)
	assert.True(t, h.Channels[1].Bad)
	assert.True(t, h.Channels[2].Aux)
	assert.False(t, h.Channels[0].Bad || h.Channels[0].Aux)

	m := format.NewMatrix(3, 4)
	require.NoError(t, r.ReadWindow(0, 0, 3, m, 0))
	for tf := 0; tf < 4; tf++ {
		assert.InDelta(t, 10*float64(tf)*6400/65536, m.At(0, tf), 1e-6)
		assert.InDelta(t, -float64(tf)*6400/65536, m.At(1, tf), 1e-6)
		assert.InDelta(t, float64(tf)*10*1000/65536, m.At(2, tf), 1e-6)
	}

	markers, err := r.Markers()
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{
		{From: 1, To: 1, Code: 5, Name: "5", Type: format.Trigger},
		{From: 2, To: 2, Code: 1, Name: "eyes closed", Type: format.Event},
		{From: 3, To: 3, Code: 9, Name: "9", Type: format.Trigger},
	}, markers)
}

func TestOldHeaderNeedsConfirmation(t *testing.T) {
	path := writeTRC(t, func(h *micromed.Header) { h.HeaderType = 3 })

	_, err := micromed.Open(path, nil)
	require.ErrorIs(t, err, format.ErrDeclined)

	var asked string
	r, err := micromed.Open(path, &format.Options{Confirm: func(q string) bool {
		asked = q
		return true
	}})
	require.NoError(t, err)
	defer r.Close()
	assert.Contains(t, asked, "header type 3")
	assert.Equal(t, 4, r.Header().NumTimeFrames)
}

func TestRejects(t *testing.T) {
	_, err := micromed.Open(writeTRC(t, func(h *micromed.Header) { h.Compression = 1 }), nil)
	require.ErrorIs(t, err, format.ErrUnsupported)

	_, err = micromed.Open(writeTRC(t, func(h *micromed.Header) { h.Title = [32]byte{} }), nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)

	_, err = micromed.Open(writeTRC(t, func(h *micromed.Header) { h.Bytes = 3 }), nil)
	require.ErrorIs(t, err, format.ErrCorruptHeader)

	short := filepath.Join(t.TempDir(), "short.trc")
	require.NoError(t, os.WriteFile(short, []byte("MICROMED"), 0o644))
	_, err = micromed.Open(short, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)
}
