// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

import "fmt"

// Matrix is a dense rows x time frames sample buffer, stored row-major.
type Matrix struct {
	Rows       int
	TimeFrames int
	Data       []float32
}

// NewMatrix allocates a zeroed matrix.
func NewMatrix(rows, timeFrames int) *Matrix {
	return &Matrix{
		Rows:       rows,
		TimeFrames: timeFrames,
		Data:       make([]float32, rows*timeFrames),
	}
}

// At returns the sample of row r at column tf.
func (m *Matrix) At(r, tf int) float32 {
	return m.Data[r*m.TimeFrames+tf]
}

// Set stores v at row r, column tf.
func (m *Matrix) Set(r, tf int, v float32) {
	m.Data[r*m.TimeFrames+tf] = v
}

// Row returns the backing slice of row r.
func (m *Matrix) Row(r int) []float32 {
	return m.Data[r*m.TimeFrames : (r+1)*m.TimeFrames]
}

// Column copies time frame tf of every row into dst, which must hold Rows values.
func (m *Matrix) Column(tf int, dst []float32) {
	for r := 0; r < m.Rows; r++ {
		dst[r] = m.Data[r*m.TimeFrames+tf]
	}
}

// Slice returns a new matrix holding columns [from, to] of rows [0, rows).
func (m *Matrix) Slice(rows, from, to int) *Matrix {
	out := NewMatrix(rows, to-from+1)
	for r := 0; r < rows; r++ {
		copy(out.Row(r), m.Row(r)[from:to+1])
	}
	return out
}

// CheckWindow validates a read of [tf1, tf2] into columns starting at offset.
func (m *Matrix) CheckWindow(rows, tf1, tf2, offset, limit int) error {
	if tf1 < 0 || tf2 < tf1 || tf2 >= limit {
		return fmt.Errorf("window [%d, %d] of %d time frames: %w", tf1, tf2, limit, ErrOutOfRange)
	}
	if m.Rows < rows || offset < 0 || offset+tf2-tf1+1 > m.TimeFrames {
		return fmt.Errorf("destination %dx%d cannot hold %d rows at column %d: %w",
			m.Rows, m.TimeFrames, rows, offset, ErrOutOfRange)
	}
	return nil
}
