// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package erpss

// nibbleReader pulls 4-bit groups out of a payload, high nibble first.
type nibbleReader struct {
	buf []byte
	pos int // In nibbles
}

func (r *nibbleReader) next() (int, bool) {
	i := r.pos >> 1
	if i >= len(r.buf) {
		return 0, false
	}
	b := r.buf[i]
	if r.pos&1 == 0 {
		b >>= 4
	}
	r.pos++
	return int(b & 0x0F), true
}

// bits reads n nibbles as one big-endian value.
func (r *nibbleReader) bits(n int) (int, bool) {
	v := 0
	for i := 0; i < n; i++ {
		x, ok := r.next()
		if !ok {
			return 0, false
		}
		v = v<<4 | x
	}
	return v, true
}

type nibbleWriter struct {
	buf  []byte
	half bool
}

func (w *nibbleWriter) put(n int) {
	if !w.half {
		w.buf = append(w.buf, byte(n&0x0F)<<4)
	} else {
		w.buf[len(w.buf)-1] |= byte(n & 0x0F)
	}
	w.half = !w.half
}

// putBits writes the low 4*n bits of v, most significant nibble first.
func (w *nibbleWriter) putBits(v, n int) {
	for i := n - 1; i >= 0; i-- {
		w.put(v >> (4 * i))
	}
}

func signExtend(v, bits int) int {
	if v&(1<<(bits-1)) != 0 {
		v -= 1 << bits
	}
	return v
}

// Decode expands a compressed payload of frames time frames of nch multiplexed channels into
// dst, frame after frame.
func Decode(payload []byte, nch, frames int, dst []int16) error {
	if len(dst) < nch*frames {
		return ErrBadGeometry
	}
	r := nibbleReader{buf: payload}
	prev := make([]int, nch)
	for i := 0; i < nch*frames; i++ {
		c := i % nch
		n0, ok := r.next()
		if !ok {
			return ErrTruncated
		}

		var v, x int
		switch {
		case n0&0x8 == 0:
			v = prev[c] + signExtend(n0&0x7, 3)
		case n0&0xC == 0x8:
			x, ok = r.bits(1)
			v = prev[c] + signExtend((n0&0x3)<<4|x, 6)
		case n0&0xE == 0xC:
			x, ok = r.bits(2)
			v = prev[c] + signExtend((n0&0x1)<<8|x, 9)
		case n0 == 0xE:
			x, ok = r.bits(3)
			v = prev[c] + signExtend(x, 12)
		default:
			x, ok = r.bits(4)
			v = int(int16(uint16(x)))
		}
		if !ok {
			return ErrTruncated
		}

		prev[c] = int(int16(v))
		dst[i] = int16(v)
	}
	return nil
}

// Encode compresses multiplexed samples of nch channels. Each value takes the shortest code
// able to hold its delta.
func Encode(samples []int16, nch int) []byte {
	var w nibbleWriter
	prev := make([]int, nch)
	for i, s := range samples {
		c := i % nch
		v := int(s)
		d := v - prev[c]
		switch {
		case d >= -4 && d <= 3:
			w.put(d & 0x7)
		case d >= -32 && d <= 31:
			w.putBits(0x2<<6|d&0x3F, 2)
		case d >= -256 && d <= 255:
			w.putBits(0x6<<9|d&0x1FF, 3)
		case d >= -2048 && d <= 2047:
			w.put(0xE)
			w.putBits(d&0xFFF, 3)
		default:
			w.put(0xF)
			w.putBits(int(uint16(s)), 4)
		}
		prev[c] = v
	}
	return w.buf
}
