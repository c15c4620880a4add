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
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

const (
	// SetupSize is the size of the SETUP record.
	SetupSize = 900
	// ElectrodeSize is the size of an electrode record.
	ElectrodeSize = 75
	// Revision starts every file.
	Revision = "Version 3."
)

// Setup holds the SETUP fields used to decode a file.
type Setup struct {
	Revision      string
	Date          string
	Time          string
	NumChannels   int
	Rate          int
	NumSamples    int
	EventTablePos int64
	ChannelOffset int
}

// StartTime combines the date and time fields.
func (s *Setup) StartTime() time.Time {
	t, err := time.Parse("01/02/06 15:04:05", strings.TrimSpace(s.Date)+" "+strings.TrimSpace(s.Time))
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseSetup decodes a SETUP record.
func ParseSetup(b []byte) (Setup, error) {
	if len(b) < SetupSize || !strings.HasPrefix(string(b[:12]), Revision) {
		return Setup{}, ErrNotCNT
	}
	le := binary.LittleEndian
	return Setup{
		Revision:      format.CleanName(b[0:12]),
		Date:          format.CleanName(b[225:235]),
		Time:          format.CleanName(b[235:247]),
		NumChannels:   int(le.Uint16(b[370:])),
		Rate:          int(le.Uint16(b[376:])),
		NumSamples:    int(int32(le.Uint32(b[864:]))),
		EventTablePos: int64(int32(le.Uint32(b[886:]))),
		ChannelOffset: int(int32(le.Uint32(b[894:]))),
	}, nil
}

// Electrode holds the electrode record fields used to decode a channel.
type Electrode struct {
	Label       string
	Bad         bool
	Baseline    int16
	Sensitivity float32
	Calibration float32
}

// Gain is the physical value of one digital unit.
func (e *Electrode) Gain() float64 {
	return float64(e.Sensitivity) * float64(e.Calibration) / 204.8
}

// ParseElectrode decodes an electrode record.
func ParseElectrode(b []byte) Electrode {
	le := binary.LittleEndian
	return Electrode{
		Label:       format.CleanName(b[0:10]),
		Bad:         b[14] != 0,
		Baseline:    int16(le.Uint16(b[47:])),
		Sensitivity: math.Float32frombits(le.Uint32(b[59:])),
		Calibration: math.Float32frombits(le.Uint32(b[71:])),
	}
}

// Format is the Neuroscan decoder.
type Format struct{}

func (Format) Name() string { return "Neuroscan" }

func (Format) Extensions() []string { return []string{".cnt"} }

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

// Reader gives random access to a CNT file.
type Reader struct {
	f           *os.File
	log         *slog.Logger
	setup       Setup
	electrodes  []Electrode
	origin      int64
	width       int // Bytes per sample
	blockFrames int // Time frames per channel block
	eventsEnd   int64
	hdr         *format.Header
}

// Open opens a CNT file.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, log: opts.Log().With("format", "Neuroscan")}
	if err := r.load(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(size int64) error {
	b := make([]byte, SetupSize)
	if _, err := r.f.ReadAt(b, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrNotCNT, err)
	}
	s, err := ParseSetup(b)
	if err != nil {
		return err
	}
	r.setup = s
	nch := s.NumChannels
	if nch <= 0 {
		return fmt.Errorf("%w: %d channels", ErrBadGeometry, nch)
	}

	r.origin = SetupSize + int64(nch)*ElectrodeSize
	if r.origin > size {
		return fmt.Errorf("%w: electrode table past the end of file", ErrBadGeometry)
	}
	table := make([]byte, nch*ElectrodeSize)
	if _, err := r.f.ReadAt(table, SetupSize); err != nil {
		return fmt.Errorf("error reading electrodes: %w", err)
	}
	for i := 0; i < nch; i++ {
		r.electrodes = append(r.electrodes, ParseElectrode(table[i*ElectrodeSize:]))
	}

	end := s.EventTablePos
	if end <= r.origin || end > size {
		r.log.Warn("Event table offset outside the file, reading samples up to the end", "eventTablePos", end)
		end = size
	}
	r.eventsEnd = end

	r.width = 2
	if s.NumSamples > 0 && (end-r.origin)/(int64(nch)*int64(s.NumSamples)) == 4 {
		r.width = 4
	}
	frames := format.FramesFromSize(end, r.origin, nch*r.width)
	if s.NumSamples > 0 && s.NumSamples < frames {
		frames = s.NumSamples
	} else if s.NumSamples != frames {
		r.log.Warn("Recomputed time frame count from file size", "header", s.NumSamples, "timeFrames", frames)
	}

	r.blockFrames = max(1, s.ChannelOffset/r.width)
	if frames%r.blockFrames != 0 {
		r.log.Warn("Sample count is not a whole number of channel blocks", "blockFrames", r.blockFrames)
		frames -= frames % r.blockFrames
	}

	out := &format.Header{
		Format:            "Neuroscan",
		NumTimeFrames:     frames,
		SamplingFrequency: float64(s.Rate),
		StartTime:         s.StartTime(),
		AtomType:          format.Scalar,
	}
	for _, e := range r.electrodes {
		out.Channels = append(out.Channels, format.Channel{
			Name:   e.Label,
			Unit:   "uV",
			Gain:   e.Gain(),
			Offset: float64(e.Baseline),
			Bad:    e.Bad,
		})
	}
	format.ApplyNames(out.Channels)
	out.SingleSession(r.origin)

	r.hdr = out
	return nil
}

// Native returns the SETUP fields and the electrode table.
func (r *Reader) Native() (Setup, []Electrode) {
	return r.setup, r.electrodes
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

// ReadWindow implements format.Reader.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session != 0 {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	if err := dst.CheckWindow(r.hdr.Rows(), tf1, tf2, offset, r.hdr.NumTimeFrames); err != nil {
		return err
	}

	nch := len(r.electrodes)
	bf := r.blockFrames
	blockBytes := bf * nch * r.width
	b1, b2 := tf1/bf, tf2/bf
	buf := make([]byte, (b2-b1+1)*blockBytes)
	if _, err := r.f.ReadAt(buf, r.origin+int64(b1)*int64(blockBytes)); err != nil && err != io.EOF {
		return fmt.Errorf("error reading samples: %w", err)
	}

	for tf := tf1; tf <= tf2; tf++ {
		block := buf[(tf/bf-b1)*blockBytes:]
		j := tf % bf
		for c := 0; c < nch; c++ {
			at := (c*bf + j) * r.width
			var v float64
			if r.width == 4 {
				v = float64(int32(binary.LittleEndian.Uint32(block[at:])))
			} else {
				v = float64(int16(binary.LittleEndian.Uint16(block[at:])))
			}
			ch := &r.hdr.Channels[c]
			dst.Set(c, offset+tf-tf1, float32((v-ch.Offset)*ch.Gain))
		}
	}
	return nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
