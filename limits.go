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
)

// Limits are the statistical bounds of the processed tracks of the current session.
type Limits struct {
	Min    float64 // Smallest value of a valid channel
	Max    float64 // Largest value of a valid channel
	MaxGFP float64 // Largest GFP (RMS for positive data)
	Frames int     // Time frames scanned
}

// limitChunks is the number of evenly spaced windows scanned on long sessions.
const limitChunks = 8

// Limits returns the bounds computed after the last configuration change.
func (d *Document) Limits() Limits {
	return d.limits
}

func (d *Document) updateLimits() {
	l, err := d.computeLimits()
	if err != nil {
		d.log.Warn("Cannot compute limits", "err", err)
		return
	}
	d.limits = l
}

// computeLimits scans the whole session, or limitChunks windows totalling
// limits.max_scan_frames time frames when it is longer.
func (d *Document) computeLimits() (Limits, error) {
	n := d.TimeFrameCount()
	budget := d.cfg.Limits.MaxScanFrames

	windows := [][2]int{{0, n - 1}}
	if n > budget {
		size := max(1, budget/limitChunks)
		windows = windows[:0]
		for i := 0; i < limitChunks; i++ {
			from := i * (n - size) / (limitChunks - 1)
			windows = append(windows, [2]int{from, from + size - 1})
		}
	}

	l := Limits{Min: math.Inf(1), Max: math.Inf(-1)}
	valid := d.ValidChannels()
	nch := d.hdr.NumChannels()
	for _, w := range windows {
		m, err := d.GetTracks(TrackRequest{From: w[0], To: w[1], Derived: true})
		if err != nil {
			return Limits{}, err
		}
		comps := (m.Rows - NumDerived) / nch
		for c, ok := range valid {
			if !ok {
				continue
			}
			for k := 0; k < comps; k++ {
				for _, v := range m.Row(c*comps + k) {
					l.Min = min(l.Min, float64(v))
					l.Max = max(l.Max, float64(v))
				}
			}
		}
		for _, v := range m.Row(m.Rows - NumDerived + DerivedGFP) {
			l.MaxGFP = max(l.MaxGFP, float64(v))
		}
		l.Frames += m.TimeFrames
	}
	if math.IsInf(l.Min, 1) {
		l.Min, l.Max = 0, 0
	}
	return l, nil
}
