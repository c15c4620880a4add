// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

// Source is the read side of an export: a single-session recording in physical units.
type Source interface {
	Header() *Header
	ReadWindow(session, tf1, tf2 int, dst *Matrix, offset int) error
}

// Exporter is implemented by formats that can write recordings.
type Exporter interface {
	Export(path string, src Source, markers []Marker) error
}

// ExportBlock is the number of time frames exporters read at once.
const ExportBlock = 4096

// Walk reads session 0 of src block by block. fn receives a matrix of Header().Rows() rows
// holding the time frames starting at tf; the matrix is reused between calls.
func Walk(src Source, block int, fn func(m *Matrix, tf int) error) error {
	hdr := src.Header()
	total := hdr.NumTimeFrames
	if len(hdr.Sessions) > 0 {
		total = hdr.Sessions[0].NumTimeFrames
	}
	if block <= 0 {
		block = ExportBlock
	}

	var m *Matrix
	for tf := 0; tf < total; tf += block {
		n := min(block, total-tf)
		if m == nil || m.TimeFrames != n {
			m = NewMatrix(hdr.Rows(), n)
		}
		if err := src.ReadWindow(0, tf, tf+n-1, m, 0); err != nil {
			return err
		}
		if err := fn(m, tf); err != nil {
			return err
		}
	}
	return nil
}
