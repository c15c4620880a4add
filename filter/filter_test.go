// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package filter_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/OpenPSG/tracks/filter"
	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sf = 250.0

func noisyMatrix(rows, n int, seed int64) *format.Matrix {
	rng := rand.New(rand.NewSource(seed))
	m := format.NewMatrix(rows, n)
	for r := 0; r < rows; r++ {
		for t := 0; t < n; t++ {
			v := 40*math.Sin(2*math.Pi*10*float64(t)/sf) + 100*float64(r) + 5*rng.NormFloat64()
			m.Set(r, t, float32(v))
		}
	}
	return m
}

func TestWindowInvariance(t *testing.T) {
	cfg := filter.Config{HighPass: 1, LowPass: 30, Notches: []float64{50}, Envelope: 0.02}
	ch, err := cfg.Build(sf)
	require.NoError(t, err)
	margin := ch.Margin()
	require.Positive(t, margin)

	n := 2*margin + 300
	whole := noisyMatrix(2, n, 1)
	ch.Temporal(whole, 2)
	ch.NonTemporal(whole, 2)

	from, to := margin+10, n-margin-20
	raw := noisyMatrix(2, n, 1)
	window := raw.Slice(2, from-margin, to+margin)
	ch.Temporal(window, 2)
	ch.NonTemporal(window, 2)

	for r := 0; r < 2; r++ {
		assert.Equal(t, whole.Row(r)[from:to+1], window.Row(r)[margin:margin+to-from+1])
	}
}

func TestHighPassRemovesOffset(t *testing.T) {
	ch, err := filter.Config{DC: true}.Build(sf)
	require.NoError(t, err)

	m := noisyMatrix(2, 4*ch.Margin(), 2)
	ch.Temporal(m, 2)

	// The centre, far from mirrored edges, has lost the offset of 100 and keeps the 10 Hz wave.
	mid := m.Row(1)[ch.Margin() : 3*ch.Margin()]
	sum, peak := 0.0, 0.0
	for _, v := range mid {
		sum += float64(v)
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	assert.InDelta(t, 0, sum/float64(len(mid)), 1)
	assert.InDelta(t, 45, peak, 20)
}

func TestLowPassKeepsDC(t *testing.T) {
	ch, err := filter.Config{LowPass: 20}.Build(sf)
	require.NoError(t, err)

	m := format.NewMatrix(1, 200)
	for i := range m.Data {
		m.Data[i] = 7
	}
	ch.Temporal(m, 1)
	for _, v := range m.Data {
		assert.InDelta(t, 7, v, 1e-3)
	}
}

func TestNotchRemovesLineNoise(t *testing.T) {
	ch, err := filter.Config{Notches: []float64{50}, Harmonics: true}.Build(sf)
	require.NoError(t, err)

	n := 6 * ch.Margin()
	m := format.NewMatrix(1, n)
	for i := 0; i < n; i++ {
		m.Set(0, i, float32(10*math.Sin(2*math.Pi*50*float64(i)/sf)+10*math.Sin(2*math.Pi*100*float64(i)/sf)))
	}
	ch.Temporal(m, 1)
	for _, v := range m.Row(0)[2*ch.Margin() : 4*ch.Margin()] {
		assert.InDelta(t, 0, v, 1)
	}
}

func TestNonTemporalStages(t *testing.T) {
	ch, err := filter.Config{Rectify: true, Threshold: 2}.Build(0)
	require.NoError(t, err)
	assert.Zero(t, ch.Margin())
	assert.False(t, ch.Linear())

	m := &format.Matrix{Rows: 1, TimeFrames: 4, Data: []float32{-3, 1, -1.5, 4}}
	ch.NonTemporal(m, 1)
	assert.Equal(t, []float32{3, 0, 0, 4}, m.Data)
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, filter.Config{LowPass: 30}.Validate(0), filter.ErrNoSamplingFrequency)
	require.ErrorIs(t, filter.Config{LowPass: 200}.Validate(sf), filter.ErrInvalidCutoff)
	require.ErrorIs(t, filter.Config{HighPass: 40, LowPass: 30}.Validate(sf), filter.ErrInvalidCutoff)
	require.NoError(t, filter.Config{Threshold: 1}.Validate(0))
	assert.True(t, filter.Config{}.IsEmpty())
	assert.Equal(t, "none", filter.Config{}.String())
	assert.Equal(t, "high-pass 1Hz, notch 50Hz", filter.Config{HighPass: 1, Notches: []float64{50}}.String())
}

func TestAverageReferenceIdempotent(t *testing.T) {
	valid := []bool{true, true, false, true}
	target := []bool{true, true, true, true}

	once := noisyMatrix(4, 50, 3)
	require.NoError(t, filter.Reference{Mode: filter.Average}.Apply(once, 1, valid, target))

	twice := noisyMatrix(4, 50, 3)
	ref := filter.Reference{Mode: filter.Average}
	require.NoError(t, ref.Apply(twice, 1, valid, target))
	require.NoError(t, ref.Apply(twice, 1, valid, target))

	for i := range once.Data {
		assert.InDelta(t, once.Data[i], twice.Data[i], 1e-3)
	}

	// The valid channels average to zero, the invalid one is shifted by the same reference.
	orig := noisyMatrix(4, 50, 3)
	for tf := 0; tf < once.TimeFrames; tf++ {
		sum := float64(once.At(0, tf)) + float64(once.At(1, tf)) + float64(once.At(3, tf))
		assert.InDelta(t, 0, sum, 1e-3)
		ref := (float64(orig.At(0, tf)) + float64(orig.At(1, tf)) + float64(orig.At(3, tf))) / 3
		assert.InDelta(t, float64(orig.At(2, tf))-ref, float64(once.At(2, tf)), 1e-3)
	}
}

func TestTracksReference(t *testing.T) {
	m := &format.Matrix{Rows: 3, TimeFrames: 1, Data: []float32{10, 4, 6}}
	ref := filter.Reference{Mode: filter.Tracks, Tracks: []int{1, 2}}
	require.NoError(t, ref.Apply(m, 1, []bool{true, true, true}, []bool{true, true, true}))
	assert.Equal(t, []float32{5, -1, 1}, m.Data)

	bad := filter.Reference{Mode: filter.Tracks, Tracks: []int{7}}
	require.ErrorIs(t, bad.Apply(m, 1, nil, []bool{true}), format.ErrOutOfRange)
	assert.True(t, filter.Reference{Mode: filter.Tracks}.IsTrivial())
}

func TestParseMode(t *testing.T) {
	m, err := filter.ParseMode("AVG")
	require.NoError(t, err)
	assert.Equal(t, filter.Average, m)
	_, err = filter.ParseMode("bipolar")
	require.Error(t, err)
}
