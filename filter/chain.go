// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package filter

import (
	"math"

	"github.com/OpenPSG/tracks/format"
)

// Chain is a Config compiled for one sampling frequency.
type Chain struct {
	kernel    Kernel
	linear    bool // kernel is not the identity
	envelope  int  // half window of the envelope stage, in time frames
	rectify   bool
	threshold float32
}

// Build compiles the configuration for the sampling frequency sf.
func (c Config) Build(sf float64) (*Chain, error) {
	if err := c.Validate(sf); err != nil {
		return nil, err
	}

	ch := &Chain{
		kernel:    identity(),
		rectify:   c.Rectify,
		threshold: float32(c.Threshold),
	}

	high := c.HighPass
	if c.DC {
		high = max(high, c.dcCutoff())
	}
	if high > 0 {
		ch.kernel = convolve(ch.kernel, highPass(high, sf))
		ch.linear = true
	}
	if c.LowPass > 0 {
		ch.kernel = convolve(ch.kernel, lowPassStage(c.LowPass, sf))
		ch.linear = true
	}
	if len(c.Notches) > 0 {
		var centers []float64
		width := c.notchWidth()
		for _, f := range c.Notches {
			centers = append(centers, f)
			if !c.Harmonics {
				continue
			}
			for h := 2 * f; h+width/2 < sf/2; h += f {
				centers = append(centers, h)
			}
		}
		ch.kernel = convolve(ch.kernel, bandStop(centers, width, sf))
		ch.linear = true
	}
	if c.Envelope > 0 {
		ch.envelope = max(1, int(math.Round(c.Envelope*sf/2)))
	}

	return ch, nil
}

// Margin is the number of extra time frames needed on each side of a window.
func (ch *Chain) Margin() int {
	return ch.kernel.Half + ch.envelope
}

// Linear reports whether the chain has a FIR stage.
func (ch *Chain) Linear() bool {
	return ch.linear
}

// Post reports whether the chain has non-linear stages applied after re-referencing.
func (ch *Chain) Post() bool {
	return ch.rectify || ch.envelope > 0 || ch.threshold > 0
}

// Temporal applies the FIR stage to rows [0, rows) of m.
func (ch *Chain) Temporal(m *format.Matrix, rows int) {
	if !ch.linear {
		return
	}
	scratch := make([]float32, m.TimeFrames)
	for r := 0; r < rows; r++ {
		ch.kernel.apply(m.Row(r), scratch)
	}
}

// TemporalChannels applies the FIR stage to the comps rows of every channel flagged in target.
// Unflagged channels, such as auxiliary and trigger channels, keep their samples.
func (ch *Chain) TemporalChannels(m *format.Matrix, comps int, target []bool) {
	if !ch.linear {
		return
	}
	scratch := make([]float32, m.TimeFrames)
	for c, ok := range target {
		if !ok {
			continue
		}
		for k := 0; k < comps; k++ {
			if r := c*comps + k; r < m.Rows {
				ch.kernel.apply(m.Row(r), scratch)
			}
		}
	}
}

// NonTemporal applies rectification, envelope and threshold to rows [0, rows) of m.
func (ch *Chain) NonTemporal(m *format.Matrix, rows int) {
	if !ch.Post() {
		return
	}
	scratch := make([]float32, m.TimeFrames)
	for r := 0; r < rows; r++ {
		row := m.Row(r)
		if ch.rectify {
			for i, v := range row {
				row[i] = float32(math.Abs(float64(v)))
			}
		}
		if ch.envelope > 0 {
			envelope(row, scratch, ch.envelope)
		}
		if ch.threshold > 0 {
			for i, v := range row {
				if v < ch.threshold && v > -ch.threshold {
					row[i] = 0
				}
			}
		}
	}
}

// envelope replaces every sample with the largest magnitude within half time frames.
func envelope(row, scratch []float32, half int) {
	n := len(row)
	copy(scratch, row)
	src := scratch[:n]
	for t := 0; t < n; t++ {
		peak := float32(0)
		for d := -half; d <= half; d++ {
			j := mirror(t+d, n)
			if j < 0 {
				continue
			}
			v := src[j]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		row[t] = peak
	}
}
