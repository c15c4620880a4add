// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// OpenFile opens path for reading and returns its size.
func OpenFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return f, fi.Size(), nil
}

// ReadHead reads the first n bytes of path, or fewer when the file is shorter.
func ReadHead(path string, n int) ([]byte, int64, error) {
	f, size, err := OpenFile(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	b := make([]byte, n)
	m, err := io.ReadFull(f, b)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, 0, fmt.Errorf("error reading header: %w", err)
	}
	return b[:m], size, nil
}

// Int24LE decodes a little-endian two's complement 24-bit integer.
func Int24LE(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

// PutInt24LE encodes v as a little-endian 24-bit integer.
func PutInt24LE(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// Uint24BE decodes a big-endian unsigned 24-bit integer.
func Uint24BE(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PutUint24BE encodes v as a big-endian 24-bit integer.
func PutUint24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// FramesFromSize returns how many whole time frames of frameBytes fit after origin.
func FramesFromSize(size, origin int64, frameBytes int) int {
	if frameBytes <= 0 || size <= origin {
		return 0
	}
	return int((size - origin) / int64(frameBytes))
}

// ReadMultiplexedFloat32 decodes time frames [tf1, tf2] of a payload of little-endian float32
// samples stored frame after frame (rows values per frame) from origin.
func ReadMultiplexedFloat32(r io.ReaderAt, origin int64, rows, tf1, tf2 int, dst *Matrix, offset int) error {
	n := tf2 - tf1 + 1
	buf := make([]byte, n*rows*4)
	if _, err := r.ReadAt(buf, origin+int64(tf1)*int64(rows)*4); err != nil && err != io.EOF {
		return fmt.Errorf("error reading samples: %w", err)
	}
	for tf := 0; tf < n; tf++ {
		frame := buf[tf*rows*4:]
		for row := 0; row < rows; row++ {
			dst.Set(row, offset+tf, math.Float32frombits(binary.LittleEndian.Uint32(frame[row*4:])))
		}
	}
	return nil
}

// WriteMultiplexedFloat32 encodes the first rows rows of m frame after frame as little-endian float32.
func WriteMultiplexedFloat32(w io.Writer, m *Matrix, rows int) error {
	buf := make([]byte, rows*4)
	for tf := 0; tf < m.TimeFrames; tf++ {
		for row := 0; row < rows; row++ {
			binary.LittleEndian.PutUint32(buf[row*4:], math.Float32bits(m.At(row, tf)))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("error writing samples: %w", err)
		}
	}
	return nil
}
