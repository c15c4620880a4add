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

	"github.com/OpenPSG/tracks/filter"
	"github.com/OpenPSG/tracks/format"
)

// ROI is a group of channels averaged into one track.
type ROI struct {
	Name     string
	Channels []int
}

// TrackRequest selects the time frames and processing of a GetTracks call.
type TrackRequest struct {
	From int // First time frame, relative to the current session
	To   int // Last time frame, inclusive

	// Positive returns magnitudes: the norm of vector atoms or the absolute value of scalars.
	Positive bool
	// Reference overrides the document reference when set.
	Reference *filter.Reference
	// Derived appends the GFP (or RMS), dissimilarity and average tracks after the regular ones.
	Derived bool
	// ROIs replaces the regular tracks by one averaged track per region.
	ROIs []ROI
}

// GetTracks returns the samples of [req.From, req.To] of the current session. The matrix has
// one row per regular channel (three per channel for vector atoms unless req.Positive is set),
// or one per region, followed by NumDerived rows when req.Derived is set.
func (d *Document) GetTracks(req TrackRequest) (*format.Matrix, error) {
	if d.closed {
		return nil, ErrClosed
	}
	n := d.TimeFrameCount()
	if req.From < 0 || req.To < req.From || req.To >= n {
		return nil, fmt.Errorf("window [%d, %d] of %d time frames: %w", req.From, req.To, n, format.ErrOutOfRange)
	}
	for _, roi := range req.ROIs {
		for _, c := range roi.Channels {
			if c < 0 || c >= d.hdr.NumChannels() {
				return nil, fmt.Errorf("region %q channel %d: %w", roi.Name, c, format.ErrOutOfRange)
			}
		}
	}

	vector := d.hdr.AtomType == format.Vector
	ref := d.ref
	if req.Reference != nil {
		ref = *req.Reference
	}
	if req.Positive && vector {
		ref = filter.Reference{Mode: filter.AsRecorded}
	}

	// One more time frame before From gives the dissimilarity its context.
	lead := 0
	if req.Derived && req.From > 0 {
		lead = 1
	}
	win := WindowRequest{From: req.From - lead, To: req.To, Mirror: true}
	if d.active && d.chain != nil {
		win.Margin = d.chain.Margin()
	}

	rows := d.hdr.Rows()
	buf, err := win.Read(d.reader, d.session, n, rows)
	if err != nil {
		return nil, fmt.Errorf("error reading time frames [%d, %d]: %w", req.From, req.To, err)
	}

	comps := d.hdr.AtomType.Components()
	target := d.referenced()
	if d.active && d.chain != nil {
		d.chain.TemporalChannels(buf, comps, target)
	}
	if err := ref.Apply(buf, comps, d.ValidChannels(), target); err != nil {
		return nil, err
	}
	if req.Positive {
		buf, comps = magnitudes(buf, comps), 1
		rows = buf.Rows
	}
	if d.active && d.chain != nil {
		d.chain.NonTemporal(buf, rows)
	}

	res := win.Result()
	buf = buf.Slice(rows, res.Offset, res.Offset+res.TimeFrames-1)

	var derived *format.Matrix
	if req.Derived {
		derived = deriveTracks(buf, comps, d.ValidChannels(), d.fromZero(req.Positive))
	}
	if len(req.ROIs) > 0 {
		buf = averageRegions(buf, comps, req.ROIs)
		rows = buf.Rows
	}

	out := buf
	if lead > 0 || derived != nil {
		extra := 0
		if derived != nil {
			extra = NumDerived
		}
		out = format.NewMatrix(rows+extra, res.TimeFrames-lead)
		for r := 0; r < rows; r++ {
			copy(out.Row(r), buf.Row(r)[lead:])
		}
		for k := 0; k < extra; k++ {
			copy(out.Row(rows+k), derived.Row(k)[lead:])
		}
	}
	return out, nil
}

// fromZero reports whether the field power of a request is an RMS from zero rather than a GFP.
func (d *Document) fromZero(positive bool) bool {
	return positive || d.hdr.AtomType != format.Scalar
}

// referenced flags the channels that are filtered and re-referenced.
func (d *Document) referenced() []bool {
	target := make([]bool, len(d.aux))
	for c := range target {
		target[c] = !d.aux[c]
	}
	return target
}

// magnitudes collapses every channel of m into its absolute value or vector norm.
func magnitudes(m *format.Matrix, comps int) *format.Matrix {
	nch := m.Rows / comps
	out := format.NewMatrix(nch, m.TimeFrames)
	for c := 0; c < nch; c++ {
		for tf := 0; tf < m.TimeFrames; tf++ {
			sum := 0.0
			for k := 0; k < comps; k++ {
				v := float64(m.At(c*comps+k, tf))
				sum += v * v
			}
			out.Set(c, tf, float32(math.Sqrt(sum)))
		}
	}
	return out
}

// averageRegions returns one row (comps rows for vectors) per region.
func averageRegions(m *format.Matrix, comps int, rois []ROI) *format.Matrix {
	out := format.NewMatrix(len(rois)*comps, m.TimeFrames)
	for i, roi := range rois {
		if len(roi.Channels) == 0 {
			continue
		}
		inv := 1 / float64(len(roi.Channels))
		for k := 0; k < comps; k++ {
			dst := out.Row(i*comps + k)
			for tf := range dst {
				sum := 0.0
				for _, c := range roi.Channels {
					sum += float64(m.At(c*comps+k, tf))
				}
				dst[tf] = float32(sum * inv)
			}
		}
	}
	return out
}
