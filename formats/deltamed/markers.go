// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package deltamed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"math"
)

const (
	// MarkerMagic starts every marker file.
	MarkerMagic = "MRK1"
	// End terminates the list in next and prev fields.
	End          = math.MaxUint32
	recordHead   = 19
	markerHeader = 8
)

// Record is one marker of a marker file.
type Record struct {
	Offset   uint32 // Position of the record in the file
	Prev     uint32
	Next     uint32
	Sample   uint32
	Duration uint32
	Code     uint16
	Name     string
}

// Records walks the marker list stored in r, of size bytes. The sequence reads lazily from r
// and restarts from the head every time it is ranged over. It ends at the terminator, or after
// yielding an error for a missing magic, a record out of bounds or a loop.
func Records(r io.ReaderAt, size int64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		head := make([]byte, markerHeader)
		if _, err := r.ReadAt(head, 0); err != nil {
			yield(Record{}, fmt.Errorf("%w: %w", ErrNotMarkerFile, err))
			return
		}
		if string(head[:4]) != MarkerMagic {
			yield(Record{}, ErrNotMarkerFile)
			return
		}

		// Every record takes at least recordHead bytes, a longer walk loops.
		limit := size / recordHead
		prev := uint32(End)
		buf := make([]byte, recordHead+math.MaxUint8)
		for off, n := binary.LittleEndian.Uint32(head[4:]), int64(0); off != End; n++ {
			if n > limit || int64(off)+recordHead > size {
				yield(Record{}, fmt.Errorf("%w: record at %d", ErrBrokenMarkers, off))
				return
			}
			m, err := r.ReadAt(buf, int64(off))
			if m < recordHead {
				yield(Record{}, fmt.Errorf("%w: record at %d: %w", ErrBrokenMarkers, off, err))
				return
			}
			rec := Record{
				Offset:   off,
				Next:     binary.LittleEndian.Uint32(buf[0:]),
				Prev:     binary.LittleEndian.Uint32(buf[4:]),
				Sample:   binary.LittleEndian.Uint32(buf[8:]),
				Duration: binary.LittleEndian.Uint32(buf[12:]),
				Code:     binary.LittleEndian.Uint16(buf[16:]),
			}
			if rec.Prev != prev {
				yield(Record{}, fmt.Errorf("%w: record at %d links back to %d, expected %d", ErrBrokenMarkers, off, rec.Prev, prev))
				return
			}
			nameLen := int(buf[18])
			if recordHead+nameLen > m {
				yield(Record{}, fmt.Errorf("%w: name of record at %d", ErrBrokenMarkers, off))
				return
			}
			rec.Name = string(buf[recordHead : recordHead+nameLen])

			if !yield(rec, nil) {
				return
			}
			prev, off = off, rec.Next
		}
	}
}

// WriteMarkers encodes records as a marker file, in order, ignoring their offset and link
// fields. Names longer than 255 bytes are cut.
func WriteMarkers(w io.Writer, records []Record) error {
	var buf bytes.Buffer
	buf.WriteString(MarkerMagic)

	first := uint32(End)
	if len(records) > 0 {
		first = markerHeader
	}
	_ = binary.Write(&buf, binary.LittleEndian, first)

	prev := uint32(End)
	for i, rec := range records {
		off := uint32(buf.Len())
		name := rec.Name
		if len(name) > math.MaxUint8 {
			name = name[:math.MaxUint8]
		}
		next := uint32(End)
		if i+1 < len(records) {
			next = off + recordHead + uint32(len(name))
		}
		_ = binary.Write(&buf, binary.LittleEndian, []uint32{next, prev, rec.Sample, rec.Duration})
		_ = binary.Write(&buf, binary.LittleEndian, rec.Code)
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
		prev = off
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("error writing markers: %w", err)
	}
	return nil
}
