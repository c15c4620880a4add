// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package neuroscan

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/OpenPSG/tracks/format"
)

// Accept nibble values.
const (
	Accepted = 0xC
	Rejected = 0xD
)

const eventTableHeader = 9

// Event is one entry of the event table.
type Event struct {
	StimType uint16
	KeyBoard uint8
	KeyPad   uint8 // Low nibble of the packed byte
	Accept   uint8 // High nibble of the packed byte
	Position int32 // Byte offset, or time frame for type 3 tables
}

// unpackKeyPad splits the packed keypad and accept byte.
func unpackKeyPad(b byte) (keypad, accept uint8) {
	return b & 0x0F, b >> 4
}

// Events reads the event table and returns its type with the events.
func (r *Reader) Events() (int, []Event, error) {
	pos := r.setup.EventTablePos
	if pos != r.eventsEnd {
		return 0, nil, nil
	}
	head := make([]byte, eventTableHeader)
	if _, err := r.f.ReadAt(head, pos); err != nil {
		r.log.Warn("No event table", "err", err)
		return 0, nil, nil
	}
	typ := int(head[0])
	size := int(int32(binary.LittleEndian.Uint32(head[1:])))

	var stride int
	switch typ {
	case 1:
		stride = 8
	case 2, 3:
		stride = 19
	default:
		return 0, nil, fmt.Errorf("%w: %d", ErrEventTableType, typ)
	}
	if size < 0 {
		return 0, nil, fmt.Errorf("%w: event table of %d bytes", ErrBadGeometry, size)
	}

	buf := make([]byte, size)
	n, err := r.f.ReadAt(buf, pos+eventTableHeader)
	if n < size {
		r.log.Warn("Truncated event table", "size", size, "read", n, "err", err)
	}
	buf = buf[:n-n%stride]

	events := make([]Event, 0, len(buf)/stride)
	for off := 0; off < len(buf); off += stride {
		keypad, accept := unpackKeyPad(buf[off+3])
		events = append(events, Event{
			StimType: binary.LittleEndian.Uint16(buf[off:]),
			KeyBoard: buf[off+2],
			KeyPad:   keypad,
			Accept:   accept,
			Position: int32(binary.LittleEndian.Uint32(buf[off+4:])),
		})
	}
	return typ, events, nil
}

// Markers converts the accepted events: stimulus codes become triggers, keyboard and keypad
// responses become events named after the key.
func (r *Reader) Markers() ([]format.Marker, error) {
	typ, events, err := r.Events()
	if err != nil {
		return nil, err
	}

	frameBytes := int64(len(r.electrodes) * r.width)
	var markers []format.Marker
	for _, ev := range events {
		if ev.Accept == Rejected {
			continue
		}
		tf := int(ev.Position)
		if typ != 3 {
			tf = int((int64(ev.Position) - r.origin) / frameBytes)
		}
		if tf < 0 || tf >= r.hdr.NumTimeFrames {
			continue
		}

		m := format.Marker{From: tf, To: tf}
		switch {
		case ev.StimType != 0:
			m.Code, m.Name, m.Type = int(ev.StimType), strconv.Itoa(int(ev.StimType)), format.Trigger
		case ev.KeyBoard != 0:
			m.Code, m.Name, m.Type = int(ev.KeyBoard), "key "+strconv.Itoa(int(ev.KeyBoard)), format.Event
		case ev.KeyPad != 0:
			m.Code, m.Name, m.Type = int(ev.KeyPad), "keypad "+strconv.Itoa(int(ev.KeyPad)), format.Event
		default:
			continue
		}
		markers = append(markers, m)
	}
	format.SortMarkers(markers)
	return markers, nil
}
