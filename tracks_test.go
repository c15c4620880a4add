// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks_test

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/OpenPSG/tracks"
	"github.com/OpenPSG/tracks/filter"
	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFormat serves one in-memory recording for every .mem file.
type memFormat struct {
	mem *format.Memory
}

func (memFormat) Name() string         { return "MEM" }
func (memFormat) Extensions() []string { return []string{".mem"} }

func (f memFormat) ReadHeader(string) (*format.Header, error) {
	return f.mem.Hdr, nil
}

func (f memFormat) Open(string, *format.Options) (format.Reader, error) {
	return f.mem, nil
}

// memory builds a single session recording from rows of samples.
func memory(sf float64, rows ...[]float32) *format.Memory {
	hdr := &format.Header{
		Format:            "MEM",
		NumTimeFrames:     len(rows[0]),
		SamplingFrequency: sf,
	}
	data := format.NewMatrix(len(rows), len(rows[0]))
	for r, row := range rows {
		hdr.Channels = append(hdr.Channels, format.Channel{Name: "e" + strconv.Itoa(r+1), Unit: "uV", Gain: 1})
		copy(data.Row(r), row)
	}
	hdr.SingleSession(0)
	return &format.Memory{Hdr: hdr, Data: data}
}

func openMemory(t *testing.T, mem *format.Memory) *tracks.Document {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rec.mem")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	doc, err := tracks.Open(path, &tracks.Options{Registry: format.NewRegistry(memFormat{mem})})
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func noise(n int, seed int64, offset float64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(offset + 20*math.Sin(2*math.Pi*float64(i)/25) + 5*rng.NormFloat64())
	}
	return out
}

func TestDerivedChannels(t *testing.T) {
	doc := openMemory(t, memory(0,
		[]float32{1, 2, -1},
		[]float32{-1, 0, 1},
		[]float32{1, 2, -1},
		[]float32{-1, 0, 1},
	))
	assert.Equal(t, 4, doc.ChannelCount())
	assert.Equal(t, 4+tracks.NumDerived, doc.TotalChannels())
	assert.Equal(t, "GFP", doc.ChannelName(4+tracks.DerivedGFP))
	assert.Equal(t, "RMS", doc.TrackName(4+tracks.DerivedGFP, true))
	assert.Equal(t, "Dis", doc.ChannelName(4+tracks.DerivedDissimilarity))
	assert.Equal(t, "Avg", doc.ChannelName(4+tracks.DerivedAverage))
	assert.False(t, doc.FiltersActive())

	m, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: 2, Derived: true})
	require.NoError(t, err)
	require.Equal(t, 4+tracks.NumDerived, m.Rows)
	assert.Equal(t, []float32{1, 2, -1}, m.Row(0))
	assert.InDeltaSlice(t, []float32{1, 1, 1}, m.Row(4+tracks.DerivedGFP), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0, 2}, m.Row(4+tracks.DerivedDissimilarity), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, m.Row(4+tracks.DerivedAverage), 1e-6)

	// A sub-range gets its dissimilarity from the preceding time frame.
	m, err = doc.GetTracks(tracks.TrackRequest{From: 1, To: 2, Derived: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.TimeFrames)
	assert.Equal(t, []float32{2, -1}, m.Row(0))
	assert.InDeltaSlice(t, []float32{0, 2}, m.Row(4+tracks.DerivedDissimilarity), 1e-6)

	m, err = doc.GetTracks(tracks.TrackRequest{From: 2, To: 2, Derived: true})
	require.NoError(t, err)
	assert.InDelta(t, 2, m.At(4+tracks.DerivedDissimilarity, 0), 1e-6)

	// Positive data takes its field power from zero.
	m, err = doc.GetTracks(tracks.TrackRequest{From: 1, To: 1, Positive: true, Derived: true})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2), m.At(4+tracks.DerivedGFP, 0), 1e-6)
}

func TestRegions(t *testing.T) {
	doc := openMemory(t, memory(0,
		[]float32{1, 2},
		[]float32{3, 4},
		[]float32{10, 20},
	))

	m, err := doc.GetTracks(tracks.TrackRequest{
		From: 0,
		To:   1,
		ROIs: []tracks.ROI{{Name: "left", Channels: []int{0, 1}}, {Name: "right", Channels: []int{2}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, []float32{2, 3, 10, 20}, m.Data)

	_, err = doc.GetTracks(tracks.TrackRequest{From: 0, To: 1, ROIs: []tracks.ROI{{Channels: []int{3}}}})
	require.ErrorIs(t, err, format.ErrOutOfRange)
}

func TestMarginCorrectness(t *testing.T) {
	const n = 800
	doc := openMemory(t, memory(250, noise(n, 1, 0), noise(n, 2, 30), noise(n, 3, -10)))

	cfg := filter.Config{HighPass: 2, LowPass: 30}
	require.NoError(t, doc.SetFilters(cfg))
	require.NoError(t, doc.ActivateFilters(true))
	require.NoError(t, doc.SetReference(filter.Reference{Mode: filter.Average}))
	margin := cfg.Margin(250)
	require.Positive(t, margin)

	from, to := margin+5, n-margin-30
	direct, err := doc.GetTracks(tracks.TrackRequest{From: from, To: to})
	require.NoError(t, err)

	wide, err := doc.GetTracks(tracks.TrackRequest{From: from - 5, To: to + 20})
	require.NoError(t, err)
	for r := 0; r < 3; r++ {
		assert.Equal(t, direct.Row(r), wide.Row(r)[5:5+to-from+1])
	}

	// Windows near the edges are still filled.
	edge, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: 9})
	require.NoError(t, err)
	assert.Equal(t, 10, edge.TimeFrames)
}

func TestFiltersSkipAuxiliaryChannels(t *testing.T) {
	const n = 600
	status := make([]float32, n)
	for tf := range status {
		if tf%100 >= 40 && tf%100 < 45 {
			status[tf] = 8
		}
	}
	mem := memory(250, noise(n, 1, 20), noise(n, 2, -5), status)
	mem.Hdr.Channels[2].Name = "STATUS"
	mem.Hdr.Channels[2].Aux = true
	doc := openMemory(t, mem)

	require.NoError(t, doc.SetFilters(filter.Config{HighPass: 1, LowPass: 30}))
	require.NoError(t, doc.ActivateFilters(true))

	m, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: n - 1})
	require.NoError(t, err)
	assert.Equal(t, status, m.Row(2))
	assert.NotEqual(t, mem.Data.Row(0), m.Row(0))
}

func TestWindowMirroring(t *testing.T) {
	mem := memory(0, []float32{10, 11, 12, 13, 14})
	m, err := tracks.WindowRequest{From: 0, To: 1, Margin: 2, Mirror: true}.Read(mem, 0, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{12, 11, 10, 11, 12, 13}, m.Data)

	// Sessions shorter than the margin are zero filled where reflection runs out.
	short := memory(0, []float32{10, 11})
	m, err = tracks.WindowRequest{From: 0, To: 1, Margin: 3, Mirror: true}.Read(short, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 10, 11, 10, 11, 10, 0, 0}, m.Data)

	m, err = tracks.WindowRequest{From: 3, To: 4, Margin: 1}.Read(mem, 0, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{12, 13, 14, 0}, m.Data)
	assert.Equal(t, tracks.WindowResult{Offset: 1, TimeFrames: 2}, tracks.WindowRequest{From: 3, To: 4, Margin: 1}.Result())
}

func TestSessionSwitch(t *testing.T) {
	row := make([]float32, 12)
	for i := range row {
		row[i] = float32(i)
	}
	mem := memory(100, row, row)
	mem.Hdr.Sessions = []format.Session{
		{FirstTimeFrame: 0, NumTimeFrames: 4},
		{FirstTimeFrame: 4, NumTimeFrames: 8},
	}
	mem.Mrk = []format.Marker{
		{From: 1, To: 2, Code: 1, Name: "a", Type: format.Event},
		{From: 3, To: 5, Code: 2, Name: "straddle", Type: format.Event},
		{From: 5, To: 6, Code: 3, Name: "b", Type: format.Trigger},
		{From: 11, To: 11, Code: 4, Name: "c", Type: format.Trigger},
	}
	doc := openMemory(t, mem)
	doc.SetTimeDisplay(tracks.Absolute)

	var changes []tracks.Change
	cancel := doc.Subscribe(func(c tracks.Change) { changes = append(changes, c) })

	assert.Equal(t, 2, doc.SessionCount())
	assert.Equal(t, 0, doc.CurrentSession())
	assert.Equal(t, 4, doc.TimeFrameCount())
	assert.Equal(t, []format.Marker{{From: 1, To: 2, Code: 1, Name: "a", Type: format.Event}}, doc.Markers())

	require.NoError(t, doc.GoToSession(1))
	assert.Equal(t, 8, doc.TimeFrameCount())
	assert.Equal(t, []format.Marker{
		{From: 1, To: 2, Code: 3, Name: "b", Type: format.Trigger},
		{From: 7, To: 7, Code: 4, Name: "c", Type: format.Trigger},
	}, doc.Markers())
	for _, m := range doc.Markers() {
		assert.True(t, m.From >= 0 && m.To < doc.TimeFrameCount())
	}
	assert.Equal(t, tracks.Absolute, doc.TimeDisplay())
	assert.Equal(t, []tracks.Change{tracks.SessionChanged}, changes)

	m, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, m.Row(0))

	_, err = doc.GetTracks(tracks.TrackRequest{From: 0, To: 8})
	require.ErrorIs(t, err, format.ErrOutOfRange)
	require.ErrorIs(t, doc.GoToSession(2), format.ErrOutOfRange)

	cancel()
	require.NoError(t, doc.GoToSession(0))
	assert.Len(t, changes, 1)
}

func TestAverageReferenceIdempotent(t *testing.T) {
	const n = 64
	rows := [][]float32{noise(n, 1, 5), noise(n, 2, -3), noise(n, 3, 100), noise(n, 4, 0)}
	avg := filter.Reference{Mode: filter.Average}

	doc := openMemory(t, memory(0, rows...))
	require.NoError(t, doc.SetBadChannels([]int{2}))
	require.NoError(t, doc.SetReference(avg))
	once, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: n - 1})
	require.NoError(t, err)

	again := openMemory(t, memory(0, once.Row(0), once.Row(1), once.Row(2), once.Row(3)))
	require.NoError(t, again.SetBadChannels([]int{2}))
	require.NoError(t, again.SetReference(avg))
	twice, err := again.GetTracks(tracks.TrackRequest{From: 0, To: n - 1})
	require.NoError(t, err)

	assert.InDeltaSlice(t, once.Data, twice.Data, 1e-3)
}

func TestBadAndAuxAreDisjoint(t *testing.T) {
	doc := openMemory(t, memory(0, []float32{1}, []float32{2}, []float32{3}, []float32{4}))

	require.NoError(t, doc.SetAuxChannels([]int{0, 1}))
	require.NoError(t, doc.SetBadChannels([]int{1}))
	assert.Equal(t, []int{0}, doc.AuxChannels())
	assert.Equal(t, []int{1}, doc.BadChannels())
	assert.Equal(t, []bool{false, false, true, true}, doc.ValidChannels())

	require.NoError(t, doc.SetAuxChannels([]int{1}))
	assert.Empty(t, doc.BadChannels())
	require.ErrorIs(t, doc.SetBadChannels([]int{4}), format.ErrOutOfRange)
}

func TestBaselineProbe(t *testing.T) {
	const n = 1000
	offset := openMemory(t, memory(250, noise(n, 1, 5000), noise(n, 2, -3000), noise(n, 3, 12000)))
	assert.True(t, offset.FiltersActive())
	assert.True(t, offset.Filters().DC)

	centered := openMemory(t, memory(250, noise(n, 1, 0), noise(n, 2, 0), noise(n, 3, 0)))
	assert.False(t, centered.FiltersActive())
	assert.True(t, centered.Filters().IsEmpty())

	require.NoError(t, offset.Revert())
	assert.False(t, offset.FiltersActive())
	assert.True(t, offset.Filters().IsEmpty())
}

func TestLimits(t *testing.T) {
	doc := openMemory(t, memory(0, []float32{1, -4, 2}, []float32{0, 3, 9}))
	l := doc.Limits()
	assert.Equal(t, -4.0, l.Min)
	assert.Equal(t, 9.0, l.Max)
	assert.Equal(t, 3, l.Frames)

	var seen []tracks.Change
	var maxima []float64
	doc.Subscribe(func(c tracks.Change) {
		seen = append(seen, c)
		maxima = append(maxima, doc.Limits().Max)
	})
	require.NoError(t, doc.SetBadChannels([]int{1}))
	require.NoError(t, doc.SetReference(filter.Reference{Mode: filter.Average}))
	assert.Equal(t, []tracks.Change{tracks.ChannelsChanged, tracks.ReferenceChanged}, seen)
	// Subscribers see the limits of the new configuration.
	assert.Equal(t, []float64{2, 0}, maxima)
}

func TestSpectrum(t *testing.T) {
	const sf, size = 256, 256
	row := make([]float32, size)
	for i := range row {
		row[i] = float32(5 * math.Sin(2*math.Pi*16*float64(i)/sf))
	}
	doc := openMemory(t, memory(sf, row))
	require.NoError(t, doc.ActivateFilters(false))

	s, err := doc.Spectrum(0, 0, size)
	require.NoError(t, err)
	assert.Len(t, s.Amplitude, size/2+1)
	assert.Equal(t, 16.0, s.Frequency(16))

	peak := 0
	for i, a := range s.Amplitude {
		if a > s.Amplitude[peak] {
			peak = i
		}
	}
	assert.Equal(t, 16, peak)
	assert.InDelta(t, 5, s.Amplitude[16], 0.1)

	_, err = doc.Spectrum(0, 0, 100)
	require.ErrorIs(t, err, tracks.ErrSpectrumSize)
}

func TestKind(t *testing.T) {
	const n = 200
	pattern := []float32{10, -10, 10, -10}

	erp := make([][]float32, 4)
	resting := make([][]float32, 4)
	for c := range erp {
		erp[c] = make([]float32, n)
		resting[c] = make([]float32, n)
		for tf := 0; tf < n; tf++ {
			if tf >= 90 && tf <= 110 {
				erp[c][tf] = pattern[c]
			}
			resting[c][tf] = pattern[c] * float32(math.Sin(2*math.Pi*float64(tf)/20))
		}
	}

	kind, err := openMemory(t, memory(0, erp...)).Kind()
	require.NoError(t, err)
	assert.Equal(t, tracks.ERP, kind)

	kind, err = openMemory(t, memory(0, resting...)).Kind()
	require.NoError(t, err)
	assert.Equal(t, tracks.Resting, kind)
}

func TestClosedDocument(t *testing.T) {
	doc := openMemory(t, memory(0, []float32{1, 2}))
	require.NoError(t, doc.Close())

	_, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: 1})
	require.ErrorIs(t, err, tracks.ErrClosed)
	require.ErrorIs(t, doc.GoToSession(0), tracks.ErrClosed)
	require.ErrorIs(t, doc.Close(), tracks.ErrClosed)
}
