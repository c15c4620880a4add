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
	"fmt"
	"math"
	"math/bits"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/OpenPSG/tracks/format"
)

// Spectrum is the one-sided amplitude spectrum of a window of one track.
type Spectrum struct {
	Resolution float64   // Hz per bin, 0 when the sampling frequency is unknown
	Amplitude  []float64 // size/2+1 bins, in the unit of the channel
}

// Frequency returns the frequency of bin i.
func (s *Spectrum) Frequency(i int) float64 {
	return float64(i) * s.Resolution
}

// Spectrum computes the amplitude spectrum of size time frames of channel starting at tf1,
// after filtering and re-referencing. size must be a power of two. A Hann window is applied.
func (d *Document) Spectrum(channel, tf1, size int) (*Spectrum, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if size < 2 || bits.OnesCount(uint(size)) != 1 {
		return nil, fmt.Errorf("%w: %d", ErrSpectrumSize, size)
	}
	if channel < 0 || channel >= d.hdr.NumChannels() {
		return nil, fmt.Errorf("channel %d: %w", channel, format.ErrOutOfRange)
	}

	req := TrackRequest{From: tf1, To: tf1 + size - 1, Positive: d.hdr.AtomType == format.Vector}
	m, err := d.GetTracks(req)
	if err != nil {
		return nil, err
	}

	in := make([]float32, size)
	row := m.Row(channel)
	gain := 0.0
	for i, v := range row {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		in[i] = float32(float64(v) * w)
		gain += w
	}

	plan, err := algofft.NewPlanReal32(size)
	if err != nil {
		return nil, fmt.Errorf("error creating FFT plan: %w", err)
	}
	out := make([]complex64, size/2+1)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("error computing FFT: %w", err)
	}

	s := &Spectrum{Amplitude: make([]float64, len(out))}
	if sf := d.hdr.SamplingFrequency; sf > 0 {
		s.Resolution = sf / float64(size)
	}
	for i, c := range out {
		a := math.Hypot(float64(real(c)), float64(imag(c))) / gain
		if i > 0 && i < size/2 {
			a *= 2
		}
		s.Amplitude[i] = a
	}
	return s, nil
}
