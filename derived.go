// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"math"

	"github.com/OpenPSG/tracks/format"
)

// deriveTracks computes the NumDerived tracks of m over the valid channels. Vector channels
// enter as their norm. For positive data the field power is taken from zero (RMS) instead of
// from the average (GFP). Dissimilarity compares each time frame with the previous column and
// is 0 in column 0.
func deriveTracks(m *format.Matrix, comps int, valid []bool, positive bool) *format.Matrix {
	out := format.NewMatrix(NumDerived, m.TimeFrames)

	var members []int
	for c, ok := range valid {
		if ok && (c+1)*comps <= m.Rows {
			members = append(members, c)
		}
	}
	if len(members) == 0 {
		return out
	}

	cur := make([]float64, len(members))
	prev := make([]float64, len(members))
	for tf := 0; tf < m.TimeFrames; tf++ {
		for i, c := range members {
			cur[i] = channelValue(m, c, comps, tf)
		}
		avg, power := field(cur, positive)
		out.Set(DerivedAverage, tf, float32(avg))
		out.Set(DerivedGFP, tf, float32(power))

		if tf > 0 {
			out.Set(DerivedDissimilarity, tf, float32(dissimilarity(prev, cur, positive)))
		}
		prev, cur = cur, prev
	}
	return out
}

func channelValue(m *format.Matrix, c, comps, tf int) float64 {
	if comps == 1 {
		return float64(m.At(c, tf))
	}
	sum := 0.0
	for k := 0; k < comps; k++ {
		v := float64(m.At(c*comps+k, tf))
		sum += v * v
	}
	return math.Sqrt(sum)
}

// field returns the average of v and its RMS deviation from the average, or from zero when
// positive is set.
func field(v []float64, positive bool) (avg, power float64) {
	for _, x := range v {
		avg += x
	}
	avg /= float64(len(v))

	center := avg
	if positive {
		center = 0
	}
	for _, x := range v {
		power += (x - center) * (x - center)
	}
	return avg, math.Sqrt(power / float64(len(v)))
}

// dissimilarity is the RMS difference of two maps, each centered and scaled by its field power.
func dissimilarity(a, b []float64, positive bool) float64 {
	avgA, powA := field(a, positive)
	avgB, powB := field(b, positive)
	if positive {
		avgA, avgB = 0, 0
	}

	sum := 0.0
	for i := range a {
		var x, y float64
		if powA > 0 {
			x = (a[i] - avgA) / powA
		}
		if powB > 0 {
			y = (b[i] - avgB) / powB
		}
		sum += (x - y) * (x - y)
	}
	return math.Sqrt(sum / float64(len(a)))
}
