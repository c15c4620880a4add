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

// Memory is a recording held entirely in memory. Data holds Hdr.Rows() rows of the whole file,
// sessions being consecutive column ranges.
type Memory struct {
	Hdr  *Header
	Data *Matrix
	Mrk  []Marker
}

// Header implements Reader.
func (s *Memory) Header() *Header {
	return s.Hdr
}

// ReadWindow implements Reader.
func (s *Memory) ReadWindow(session, tf1, tf2 int, dst *Matrix, offset int) error {
	if session < 0 || session >= len(s.Hdr.Sessions) {
		return fmt.Errorf("session %d: %w", session, ErrOutOfRange)
	}
	sess := s.Hdr.Sessions[session]
	rows := s.Hdr.Rows()
	if err := dst.CheckWindow(rows, tf1, tf2, offset, sess.NumTimeFrames); err != nil {
		return err
	}
	from := sess.FirstTimeFrame + tf1
	to := sess.FirstTimeFrame + tf2
	for r := 0; r < rows; r++ {
		copy(dst.Row(r)[offset:], s.Data.Row(r)[from:to+1])
	}
	return nil
}

// Markers implements Reader.
func (s *Memory) Markers() ([]Marker, error) {
	return s.Mrk, nil
}

// Close implements Reader.
func (s *Memory) Close() error {
	return nil
}
