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
	"github.com/OpenPSG/tracks/format"
)

// WindowRequest is a read of time frames [From, To] of a session, with Margin extra time
// frames on each side for the filters.
type WindowRequest struct {
	From   int
	To     int
	Margin int
	// Mirror reflects the margin about the session edges where the session ends before it.
	// Without Mirror those time frames are zero.
	Mirror bool
}

// WindowResult locates the requested time frames inside the expanded buffer.
type WindowResult struct {
	Offset     int // Column of From
	TimeFrames int // To - From + 1
}

// Len is the number of columns of the expanded buffer.
func (w WindowRequest) Len() int {
	return w.To - w.From + 1 + 2*w.Margin
}

// Result returns where [From, To] lies in the expanded buffer.
func (w WindowRequest) Result() WindowResult {
	return WindowResult{Offset: w.Margin, TimeFrames: w.To - w.From + 1}
}

// Read fills a Len() wide matrix from session of r, which holds n time frames. Only the part
// of the expansion inside the session is read.
func (w WindowRequest) Read(r format.Reader, session, n, rows int) (*format.Matrix, error) {
	buf := format.NewMatrix(rows, w.Len())
	first := w.From - w.Margin
	lo := max(0, first)
	hi := min(n-1, w.To+w.Margin)
	if err := r.ReadWindow(session, lo, hi, buf, lo-first); err != nil {
		return nil, err
	}
	if lo == first && hi == w.To+w.Margin {
		return buf, nil
	}

	for col := 0; col < buf.TimeFrames; col++ {
		tf := first + col
		if tf >= lo && tf <= hi {
			continue
		}
		src := -1
		if w.Mirror {
			src = reflect(tf, n)
		}
		for row := 0; row < rows; row++ {
			v := float32(0)
			if src >= 0 {
				v = buf.At(row, src-first)
			}
			buf.Set(row, col, v)
		}
	}
	return buf, nil
}

// reflect maps a time frame outside [0, n) into it by reflection about the session edges, or
// returns -1 when the session is too short.
func reflect(tf, n int) int {
	if tf < 0 {
		tf = -tf
	}
	if tf >= n {
		tf = 2*(n-1) - tf
	}
	if tf < 0 || tf >= n {
		return -1
	}
	return tf
}
