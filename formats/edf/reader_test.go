// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

type record struct {
	onset       float64
	signals     [][]float64
	annotations []edf.Annotation
}

func writeFile(t *testing.T, name string, hdr edf.Header, records []record, finalize bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, ew.WriteRecordAt(rec.onset, rec.signals, rec.annotations...))
	}
	if finalize {
		require.NoError(t, ew.Close())
	}
	return path
}

func eegSignal(label string, spr int) edf.Signal {
	return edf.Signal{
		Label:             label,
		TransducerType:    "AgAgCl electrode",
		PhysicalDimension: "uV",
		PhysicalMin:       -500,
		PhysicalMax:       500,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  spr,
	}
}

func annotationSignal(spr int) edf.Signal {
	return edf.Signal{
		Label:            edf.AnnotationsLabel,
		DigitalMin:       -32768,
		DigitalMax:       32767,
		PhysicalMin:      -1,
		PhysicalMax:      1,
		SamplesPerRecord: spr,
	}
}

func ramp(from, n int, scale float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 10 + float64(from+i)*scale
	}
	return out
}

func TestWriterRoundTrip(t *testing.T) {
	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Patient X",
		RecordingID:        "Recording 1",
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{
				Label:             "EEG Fpz-Cz",
				TransducerType:    "AgAgCl electrode",
				PhysicalDimension: "uV",
				PhysicalMin:       -1000,
				PhysicalMax:       1000,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				SamplesPerRecord:  256,
			},
		},
	}

	path := writeFile(t, "test.edf", hdr, []record{
		{onset: 0, signals: [][]float64{ramp(0, 256, 1)}},
		{onset: 1, signals: [][]float64{ramp(256, 256, 1)}},
	}, true)

	r, err := edf.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, r.Close())
	})

	native := r.Native()
	assert.Equal(t, 2, native.DataRecords)
	assert.Equal(t, "Patient X", native.PatientID)
	assert.Equal(t, start, native.StartTime)

	h := r.Header()
	assert.Equal(t, "EDF", h.Format)
	assert.Equal(t, 512, h.NumTimeFrames)
	assert.Equal(t, 256.0, h.SamplingFrequency)
	assert.Equal(t, []string{"EEG Fpz-Cz"}, h.Names())
	require.Len(t, h.Sessions, 1)

	m := format.NewMatrix(1, 512)
	require.NoError(t, r.ReadWindow(0, 0, 511, m, 0))
	for i, v := range m.Row(0) {
		require.InDelta(t, 10+float64(i), v, 0.5)
	}

	// A window straddling both records, written at an offset.
	w := format.NewMatrix(1, 12)
	require.NoError(t, r.ReadWindow(0, 250, 259, w, 2))
	for i := 0; i < 10; i++ {
		assert.InDelta(t, 10+float64(250+i), w.At(0, 2+i), 0.5)
	}

	require.ErrorIs(t, r.ReadWindow(0, 500, 512, m, 0), format.ErrOutOfRange)
	require.ErrorIs(t, r.ReadWindow(1, 0, 1, m, 0), format.ErrOutOfRange)
}

func TestBDFStatusTriggers(t *testing.T) {
	const spr = 10
	hdr := edf.Header{
		Version:            edf.VersionBDF,
		Reserved:           "24BIT",
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "Fz", PhysicalDimension: "uV", PhysicalMin: -100, PhysicalMax: 100,
				DigitalMin: -8388608, DigitalMax: 8388607, SamplesPerRecord: spr},
			{Label: "Status", PhysicalDimension: "Boolean", PhysicalMin: -8388608, PhysicalMax: 8388607,
				DigitalMin: -8388608, DigitalMax: 8388607, SamplesPerRecord: spr},
		},
	}

	status := make([]float64, 3*spr)
	for tf := range status {
		code := 0
		switch {
		case tf >= 5 && tf <= 7:
			code = 5
		case tf >= 25:
			code = 9
		}
		status[tf] = float64(0x100000 | code)
	}

	var records []record
	for rec := 0; rec < 3; rec++ {
		records = append(records, record{
			onset:   float64(rec),
			signals: [][]float64{ramp(rec*spr, spr, 1.5), status[rec*spr : (rec+1)*spr]},
		})
	}
	path := writeFile(t, "test.bdf", hdr, records, true)

	r, err := edf.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, "BDF", h.Format)
	assert.Equal(t, 30, h.NumTimeFrames)
	require.Len(t, h.Channels, 2)
	assert.True(t, h.Channels[1].Aux)
	assert.False(t, h.Channels[0].Aux)

	m := format.NewMatrix(2, 30)
	require.NoError(t, r.ReadWindow(0, 0, 29, m, 0))
	assert.InDelta(t, 10+1.5*12, m.At(0, 12), 1e-3)
	assert.Equal(t, float32(0), m.At(1, 0))
	assert.Equal(t, float32(5), m.At(1, 6))
	assert.Equal(t, float32(9), m.At(1, 29))

	markers, err := r.Markers()
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{
		{From: 5, To: 7, Code: 5, Name: "5", Type: format.Trigger},
		{From: 25, To: 29, Code: 9, Name: "9", Type: format.Trigger},
	}, markers)
}

func TestAnnotations(t *testing.T) {
	hdr := edf.Header{
		Reserved:           "EDF+C",
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{eegSignal("Cz", 100), annotationSignal(60)},
	}
	path := writeFile(t, "annotated.edf", hdr, []record{
		{onset: 0, signals: [][]float64{ramp(0, 100, 0.1)}},
		{onset: 1, signals: [][]float64{ramp(100, 100, 0.1)},
			annotations: []edf.Annotation{{Onset: 1.25, Duration: 0.5, Text: "Stim"}}},
		{onset: 2, signals: [][]float64{ramp(200, 100, 0.1)},
			annotations: []edf.Annotation{{Onset: 2, Text: "42"}, {Onset: 2.5, Text: "Stim"}}},
	}, true)

	r, err := edf.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, 300, h.NumTimeFrames)
	assert.Equal(t, []string{"Cz"}, h.Names())

	markers, err := r.Markers()
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{
		{From: 125, To: 174, Code: 1, Name: "Stim", Type: format.Event},
		{From: 200, To: 200, Code: 42, Name: "42", Type: format.Event},
		{From: 250, To: 250, Code: 1, Name: "Stim", Type: format.Event},
	}, markers)
}

func TestDiscontinuousSessions(t *testing.T) {
	hdr := edf.Header{
		Reserved:           "EDF+D",
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{eegSignal("Cz", 10), annotationSignal(30)},
	}
	path := writeFile(t, "gaps.edf", hdr, []record{
		{onset: 0, signals: [][]float64{ramp(0, 10, 1)}},
		{onset: 1, signals: [][]float64{ramp(10, 10, 1)}},
		{onset: 5, signals: [][]float64{ramp(20, 10, 1)}},
	}, true)

	r, err := edf.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	sessions := r.Header().Sessions
	require.Len(t, sessions, 2)
	assert.Equal(t, 0, sessions[0].FirstTimeFrame)
	assert.Equal(t, 20, sessions[0].NumTimeFrames)
	assert.Equal(t, 20, sessions[1].FirstTimeFrame)
	assert.Equal(t, 10, sessions[1].NumTimeFrames)
	assert.Equal(t, start.Add(5*time.Second), sessions[1].StartTime)
	assert.Equal(t, 0, format.PreferredSession(sessions))

	m := format.NewMatrix(1, 10)
	require.NoError(t, r.ReadWindow(1, 0, 9, m, 0))
	assert.InDelta(t, 30, m.At(0, 0), 0.05)
	assert.InDelta(t, 39, m.At(0, 9), 0.05)
	require.ErrorIs(t, r.ReadWindow(1, 0, 10, format.NewMatrix(1, 11), 0), format.ErrOutOfRange)
}

func TestTrailingPaddingTrimmed(t *testing.T) {
	hdr := edf.Header{
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{eegSignal("C3", 10), eegSignal("C4", 10)},
	}
	last := make([]float64, 10)
	copy(last, ramp(10, 4, 1))
	path := writeFile(t, "padded.edf", hdr, []record{
		{onset: 0, signals: [][]float64{ramp(0, 10, 1), ramp(0, 10, 2)}},
		{onset: 1, signals: [][]float64{last, last}},
	}, true)

	h, err := edf.Format{}.ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, 14, h.NumTimeFrames)
	assert.Equal(t, 14, h.Sessions[0].NumTimeFrames)
}

func TestRecordCountRecomputed(t *testing.T) {
	hdr := edf.Header{
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{eegSignal("O1", 8)},
	}
	// The writer is never closed, so the header keeps -1 records.
	path := writeFile(t, "unfinished.edf", hdr, []record{
		{signals: [][]float64{ramp(0, 8, 1)}},
		{signals: [][]float64{ramp(8, 8, 1)}},
		{signals: [][]float64{ramp(16, 8, 1)}},
	}, false)

	r, err := edf.Open(path, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, -1, r.Native().DataRecords)
	assert.Equal(t, 24, r.Header().NumTimeFrames)
}

func TestRejectsForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.edf")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0o644))

	_, err := edf.Open(path, nil)
	require.ErrorIs(t, err, format.ErrNotRecognized)

	_, err = edf.Open(filepath.Join(t.TempDir(), "missing.edf"), nil)
	require.ErrorIs(t, err, format.ErrUnreadable)
}

func TestMixedRatesUnsupported(t *testing.T) {
	hdr := edf.Header{
		StartTime:          start,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{eegSignal("EEG", 100), eegSignal("Resp", 10)},
	}
	path := writeFile(t, "psg.edf", hdr, []record{
		{signals: [][]float64{ramp(0, 100, 0.1), ramp(0, 10, 1)}},
	}, true)

	_, err := edf.Open(path, nil)
	require.ErrorIs(t, err, format.ErrUnsupported)
	require.ErrorIs(t, err, edf.ErrMixedRates)
}

func TestExport(t *testing.T) {
	const n = 250
	m := format.NewMatrix(2, n)
	for tf := 0; tf < n; tf++ {
		m.Set(0, tf, float32(tf)*0.1)
		m.Set(1, tf, 5-float32(tf)*0.2)
	}
	hdr := &format.Header{
		Channels:          []format.Channel{{Name: "Fp1", Unit: "uV"}, {Name: "Fp2", Unit: "uV"}},
		NumTimeFrames:     n,
		SamplingFrequency: 100,
		StartTime:         start,
	}
	hdr.SingleSession(0)
	markers := []format.Marker{{From: 120, To: 139, Code: 3, Name: "blink", Type: format.Event}}

	for _, name := range []string{"out.edf", "out.bdf"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, edf.Format{}.Export(path, &format.Memory{Hdr: hdr, Data: m}, markers))

			r, err := edf.Open(path, nil)
			require.NoError(t, err)
			defer r.Close()

			h := r.Header()
			assert.Equal(t, n, h.NumTimeFrames)
			assert.Equal(t, 100.0, h.SamplingFrequency)
			assert.Equal(t, []string{"Fp1", "Fp2"}, h.Names())
			assert.Equal(t, start, h.StartTime)

			got := format.NewMatrix(2, n)
			require.NoError(t, r.ReadWindow(0, 0, n-1, got, 0))
			for i := range m.Data {
				require.InDelta(t, m.Data[i], got.Data[i], 1e-2)
			}

			read, err := r.Markers()
			require.NoError(t, err)
			require.Len(t, read, 1)
			assert.Equal(t, 120, read[0].From)
			assert.Equal(t, 139, read[0].To)
			assert.Equal(t, "blink", read[0].Name)
		})
	}
}
