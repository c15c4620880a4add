// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package erpss

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/OpenPSG/tracks/format"
)

const (
	// BlockHeaderSize is the size of every block header.
	BlockHeaderSize = 512
	MagicRaw        = 0x55AA
	MagicCompressed = 0x55AC
	MaxChannels     = 64
	MaxEvents       = 32
	// CodeStart and CodeEnd delimit an acquisition.
	CodeStart = 0xFE00
	CodeEnd   = 0xFE01
)

// Event is a code attached to a time frame of a block.
type Event struct {
	TimeFrame uint16
	Code      uint16
}

// BlockHeader is the fixed header in front of every block.
type BlockHeader struct {
	Magic         uint16
	NumChannels   uint16
	NumTimeFrames uint16
	ClockPeriod   uint16 // Microseconds
	Index         uint32
	PayloadSize   uint32
	NumEvents     uint16
	_             uint16
	Calibration   float32
	_             [8]byte
	Events        [MaxEvents]Event
	Names         [MaxChannels][4]byte
	_             [96]byte
}

// Compressed reports a nibble coded payload.
func (h BlockHeader) Compressed() bool {
	return h.Magic == MagicCompressed
}

// SamplingFrequency derives the rate from the clock period.
func (h BlockHeader) SamplingFrequency() float64 {
	if h.ClockPeriod == 0 {
		return 0
	}
	return 1e6 / float64(h.ClockPeriod)
}

// Format is the ERPSS decoder.
type Format struct{}

func (Format) Name() string { return "ERPSS" }

func (Format) Extensions() []string { return []string{".rdf", ".raw"} }

func (Format) ReadHeader(path string) (*format.Header, error) {
	r, err := Open(path, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Header(), nil
}

func (Format) Open(path string, opts *format.Options) (format.Reader, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type block struct {
	origin     int64 // Payload offset
	size       int
	first      int // Absolute time frame of the first sample
	frames     int
	compressed bool
}

type event struct {
	tf   int
	code int
}

// Reader gives random access to an ERPSS file.
type Reader struct {
	f      *os.File
	log    *slog.Logger
	first  BlockHeader
	blocks []block
	events []event
	hdr    *format.Header

	// Last decoded block.
	cached  int
	samples []int16
}

// Open indexes the blocks of an ERPSS file.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, log: opts.Log().With("format", "ERPSS"), cached: -1}
	if err := r.load(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(size int64) error {
	total := 0
	for off := int64(0); off+BlockHeaderSize <= size; {
		var bh BlockHeader
		if err := binary.Read(io.NewSectionReader(r.f, off, BlockHeaderSize), binary.LittleEndian, &bh); err != nil {
			return fmt.Errorf("error reading block header: %w", err)
		}
		if bh.Magic != MagicRaw && bh.Magic != MagicCompressed {
			if len(r.blocks) == 0 {
				return ErrNotERPSS
			}
			r.log.Warn("Ignoring trailing bytes", "offset", off)
			break
		}

		nch := int(bh.NumChannels)
		if len(r.blocks) == 0 {
			switch {
			case nch == 0:
				return ErrBadGeometry
			case nch > MaxChannels:
				return fmt.Errorf("%w: %d", ErrTooManyChans, nch)
			}
			r.first = bh
		} else if bh.NumChannels != r.first.NumChannels {
			return fmt.Errorf("%w: block %d has %d channels", ErrBadGeometry, len(r.blocks), nch)
		}

		frames := int(bh.NumTimeFrames)
		payload := int64(bh.PayloadSize)
		if !bh.Compressed() && payload != int64(frames*nch*2) {
			return fmt.Errorf("%w: block %d payload of %d bytes", ErrBadGeometry, len(r.blocks), payload)
		}
		if int(bh.NumEvents) > MaxEvents {
			return fmt.Errorf("%w: block %d", ErrTooManyEvents, len(r.blocks))
		}
		if off+BlockHeaderSize+payload > size {
			r.log.Warn("Dropping truncated block", "block", len(r.blocks))
			break
		}

		for _, ev := range bh.Events[:bh.NumEvents] {
			if int(ev.TimeFrame) >= frames {
				r.log.Warn("Dropping event past the end of its block", "block", len(r.blocks), "code", ev.Code)
				continue
			}
			r.events = append(r.events, event{tf: total + int(ev.TimeFrame), code: int(ev.Code)})
		}
		r.blocks = append(r.blocks, block{
			origin:     off + BlockHeaderSize,
			size:       int(payload),
			first:      total,
			frames:     frames,
			compressed: bh.Compressed(),
		})
		total += frames
		off += BlockHeaderSize + payload
	}
	if len(r.blocks) == 0 {
		return ErrNotERPSS
	}

	out := &format.Header{
		Format:            "ERPSS",
		NumTimeFrames:     total,
		SamplingFrequency: r.first.SamplingFrequency(),
		AtomType:          format.Scalar,
	}
	gain := float64(r.first.Calibration)
	if gain == 0 {
		gain = 1
	}
	for i := 0; i < int(r.first.NumChannels); i++ {
		name := format.CleanName(r.first.Names[i][:])
		if name == "" {
			name = "ch" + strconv.Itoa(i+1)
		}
		out.Channels = append(out.Channels, format.Channel{Name: name, Unit: "uV", Gain: gain})
	}
	format.ApplyNames(out.Channels)
	out.Sessions = r.sessions(total)

	r.hdr = out
	return nil
}

// sessions pairs the start and end codes. DataOrigin is the offset of the block holding the
// first sample.
func (r *Reader) sessions(total int) []format.Session {
	table := format.NewSessionTable(0, 1, total)
	for _, ev := range r.events {
		switch ev.code {
		case CodeStart:
			b := r.blockOf(ev.tf)
			table.Start(int(r.blocks[b].origin-BlockHeaderSize)+1, ev.tf, time.Time{})
		case CodeEnd:
			table.End(ev.tf)
		}
	}
	if r.first.Compressed() {
		table.SetCompression(format.NibbleDelta)
	}
	return table.Build(time.Time{})
}

func (r *Reader) blockOf(tf int) int {
	return sort.Search(len(r.blocks), func(i int) bool {
		return r.blocks[i].first+r.blocks[i].frames > tf
	})
}

// Native returns the header of the first block.
func (r *Reader) Native() BlockHeader {
	return r.first
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

func (r *Reader) decode(b int) error {
	if b == r.cached {
		return nil
	}
	blk := r.blocks[b]
	nch := r.hdr.NumChannels()
	payload := make([]byte, blk.size)
	if _, err := r.f.ReadAt(payload, blk.origin); err != nil && err != io.EOF {
		return fmt.Errorf("error reading block %d: %w", b, err)
	}

	if cap(r.samples) < nch*blk.frames {
		r.samples = make([]int16, nch*blk.frames)
	}
	r.samples = r.samples[:nch*blk.frames]
	r.cached = -1
	if blk.compressed {
		if err := Decode(payload, nch, blk.frames, r.samples); err != nil {
			return fmt.Errorf("block %d: %w", b, err)
		}
	} else {
		for i := range r.samples {
			r.samples[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
		}
	}
	r.cached = b
	return nil
}

// ReadWindow implements format.Reader.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session < 0 || session >= len(r.hdr.Sessions) {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	s := r.hdr.Sessions[session]
	if err := dst.CheckWindow(r.hdr.Rows(), tf1, tf2, offset, s.NumTimeFrames); err != nil {
		return err
	}

	nch := r.hdr.NumChannels()
	abs := s.FirstTimeFrame + tf1
	end := s.FirstTimeFrame + tf2
	col := offset
	for abs <= end {
		b := r.blockOf(abs)
		if err := r.decode(b); err != nil {
			return err
		}
		blk := r.blocks[b]
		last := min(blk.first+blk.frames-1, end)
		for tf := abs; tf <= last; tf++ {
			frame := r.samples[(tf-blk.first)*nch:]
			for c := 0; c < nch; c++ {
				dst.Set(c, col, float32(float64(frame[c])*r.hdr.Channels[c].Gain))
			}
			col++
		}
		abs = last + 1
	}
	return nil
}

// Markers returns the block events other than the acquisition delimiters.
func (r *Reader) Markers() ([]format.Marker, error) {
	var markers []format.Marker
	for _, ev := range r.events {
		if ev.code == CodeStart || ev.code == CodeEnd {
			continue
		}
		markers = append(markers, format.Marker{
			From: ev.tf,
			To:   ev.tf,
			Code: ev.code,
			Name: strconv.Itoa(ev.code),
			Type: format.Trigger,
		})
	}
	format.SortMarkers(markers)
	return markers, nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
