// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package deltamed_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/deltamed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRoundTrip(t *testing.T) {
	start := time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)
	hdr := &format.Header{
		Channels:          []format.Channel{{Name: "Fp1", Unit: "uV"}, {Name: "ECG", Unit: "mV"}},
		NumTimeFrames:     50,
		SamplingFrequency: 256,
		StartTime:         start,
	}
	hdr.SingleSession(0)
	data := format.NewMatrix(2, 50)
	for tf := 0; tf < 50; tf++ {
		data.Set(0, tf, float32(tf-25)*4)
		data.Set(1, tf, float32(tf%7)/10)
	}
	markers := []format.Marker{
		{From: 3, To: 3, Code: 12, Name: "12", Type: format.Event},
		{From: 10, To: 19, Code: 2, Name: "eyes closed", Type: format.Event},
	}

	path := filepath.Join(t.TempDir(), "rec.eeg")
	require.NoError(t, deltamed.Format{}.Export(path, &format.Memory{Hdr: hdr, Data: data}, markers))

	r, err := deltamed.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, []string{"Fp1", "ECG"}, h.Names())
	assert.Equal(t, "mV", h.Channels[1].Unit)
	assert.True(t, h.Channels[1].Aux)
	assert.Equal(t, 50, h.NumTimeFrames)
	assert.Equal(t, 256.0, h.SamplingFrequency)
	assert.Equal(t, start, h.StartTime)

	m := format.NewMatrix(2, 50)
	require.NoError(t, r.ReadWindow(0, 0, 49, m, 0))
	for c := 0; c < 2; c++ {
		for tf := 0; tf < 50; tf++ {
			assert.InDelta(t, data.At(c, tf), m.At(c, tf), h.Channels[c].Gain)
		}
	}

	got, err := r.Markers()
	require.NoError(t, err)
	assert.Equal(t, markers, got)
}

func TestMissingHeaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.eeg")
	require.NoError(t, os.WriteFile(path, make([]byte, 8), 0o644))
	_, err := deltamed.Open(path, nil)
	require.ErrorIs(t, err, format.ErrMissingCalibration)

	require.NoError(t, os.WriteFile(strings.TrimSuffix(path, ".eeg")+".txt", []byte("Other\n"), 0o644))
	_, err = deltamed.Open(path, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)
}

func TestParseHeader(t *testing.T) {
	h, err := deltamed.ParseHeader(strings.NewReader(
		"Deltamed Coherence\nNumChannels=2\nSamplingRate=512\nChannel1=Fp1,uV,0.1,0\nChannel2=Cz,uV,0.2,-12\n"))
	require.NoError(t, err)
	assert.Equal(t, 512.0, h.SamplingRate)
	assert.Equal(t, -12.0, h.Channels[1].Offset)

	_, err = deltamed.ParseHeader(strings.NewReader("Deltamed Coherence\nNumChannels=2\nChannel1=Fp1,uV,0.1,0\n"))
	require.ErrorIs(t, err, deltamed.ErrBadHeader)

	_, err = deltamed.ParseHeader(strings.NewReader("Deltamed Coherence\nChannel1=Fp1,uV,0.1,0\nNumChannels=1\n"))
	require.ErrorIs(t, err, format.ErrCorruptHeader)

	// Keys are case-sensitive.
	_, err = deltamed.ParseHeader(strings.NewReader("Deltamed Coherence\nnumchannels=1\nChannel1=Fp1,uV,0.1,0\n"))
	require.ErrorIs(t, err, deltamed.ErrBadHeader)
}

func records(t *testing.T, raw []byte) ([]deltamed.Record, error) {
	t.Helper()
	var out []deltamed.Record
	for rec, err := range deltamed.Records(bytes.NewReader(raw), int64(len(raw))) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, deltamed.WriteMarkers(&buf, []deltamed.Record{
		{Sample: 5, Duration: 1, Code: 1, Name: "a"},
		{Sample: 9, Duration: 3, Code: 2, Name: "bc"},
		{Sample: 2, Duration: 1, Code: 3},
	}))
	raw := buf.Bytes()

	got, err := records(t, raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(8), got[0].Offset)
	assert.Equal(t, uint32(deltamed.End), got[0].Prev)
	assert.Equal(t, got[0].Offset, got[1].Prev)
	assert.Equal(t, uint32(deltamed.End), got[2].Next)
	assert.Equal(t, "bc", got[1].Name)

	// Restartable, and stops early when the consumer does.
	again, err := records(t, raw)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	n := 0
	for range deltamed.Records(bytes.NewReader(raw), int64(len(raw))) {
		n++
		break
	}
	assert.Equal(t, 1, n)

	// A list reordered on disk: the head moved to the last record.
	swapped := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint32(swapped[4:], got[2].Offset)
	_, err = records(t, swapped)
	require.ErrorIs(t, err, deltamed.ErrBrokenMarkers)

	// A loop back to the first record.
	loop := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint32(loop[got[2].Offset:], got[0].Offset)
	binary.LittleEndian.PutUint32(loop[got[0].Offset+4:], got[2].Offset)
	_, err = records(t, loop)
	require.ErrorIs(t, err, deltamed.ErrBrokenMarkers)

	empty := new(bytes.Buffer)
	require.NoError(t, deltamed.WriteMarkers(empty, nil))
	got, err = records(t, empty.Bytes())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = records(t, []byte("NOPE\x00\x00\x00\x00"))
	require.ErrorIs(t, err, deltamed.ErrNotMarkerFile)
}
