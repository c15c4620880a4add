// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package egi

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// Header is the fixed part of an EGI simple binary header.
type Header struct {
	Version      int32
	Year         int16
	Month        int16
	Day          int16
	Hour         int16
	Minute       int16
	Second       int16
	Millisecond  int32
	SamplingRate int16
	NumChannels  int16
	BoardGain    int16
	Bits         int16
	Range        int16
	NumSamples   int32
	NumEvents    int16
}

// headerSize is binary.Size(Header{}).
const headerSize = 36

// Sample encodings by version.
const (
	Int16   = 2
	Float32 = 4
	Float64 = 6
)

// SampleBytes is the width of one stored value.
func (h *Header) SampleBytes() int {
	switch h.Version &^ 1 {
	case Int16:
		return 2
	case Float32:
		return 4
	default:
		return 8
	}
}

// Segmented reports an epoched file.
func (h *Header) Segmented() bool {
	return h.Version%2 == 1
}

func validVersion(v int32) bool {
	return v >= 2 && v <= 7
}

// Format is the EGI decoder.
type Format struct{}

func (Format) Name() string { return "EGI" }

func (Format) Extensions() []string { return []string{".raw"} }

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

// Reader gives random access to an EGI file.
type Reader struct {
	f          *os.File
	log        *slog.Logger
	order      binary.ByteOrder
	native     Header
	codes      []string
	origin     int64
	frameBytes int
	scale      float64
	vref       bool
	hdr        *format.Header
}

// Open opens an EGI simple binary file.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, log: opts.Log().With("format", "EGI")}
	if err := r.load(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(size int64) error {
	section := io.NewSectionReader(r.f, 0, size)

	var version [4]byte
	if _, err := io.ReadFull(section, version[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrNotEGI, err)
	}
	switch {
	case validVersion(int32(binary.BigEndian.Uint32(version[:]))):
		r.order = binary.BigEndian
	case validVersion(int32(binary.LittleEndian.Uint32(version[:]))):
		r.order = binary.LittleEndian
		r.log.Debug("Header is byte swapped")
	default:
		return ErrNotEGI
	}

	if _, err := section.Seek(0, io.SeekStart); err != nil {
		return err
	}
	h := &r.native
	if err := binary.Read(section, r.order, h); err != nil {
		return fmt.Errorf("error reading header: %w", err)
	}
	if h.Segmented() {
		return fmt.Errorf("%w: version %d", ErrSegmented, h.Version)
	}
	if h.NumChannels <= 0 || h.NumEvents < 0 {
		return ErrBadGeometry
	}

	r.codes = make([]string, h.NumEvents)
	code := make([]byte, 4)
	for i := range r.codes {
		if _, err := io.ReadFull(section, code); err != nil {
			return fmt.Errorf("error reading event codes: %w", err)
		}
		r.codes[i] = format.CleanName(code)
	}

	r.origin = headerSize + 4*int64(h.NumEvents)
	r.frameBytes = (int(h.NumChannels) + int(h.NumEvents)) * h.SampleBytes()
	r.scale = 1
	if h.Version == Int16 && h.Bits > 0 && h.Range > 0 {
		r.scale = float64(h.Range) / math.Exp2(float64(h.Bits))
	}

	frames := int(h.NumSamples)
	if inFile := format.FramesFromSize(size, r.origin, r.frameBytes); frames <= 0 || frames > inFile {
		r.log.Warn("Recomputed time frame count from file size", "header", frames, "timeFrames", inFile)
		frames = inFile
	}

	r.vref = h.NumChannels%2 == 0
	out := &format.Header{
		Format:            "EGI",
		NumTimeFrames:     frames,
		SamplingFrequency: float64(h.SamplingRate),
		StartTime:         r.startTime(),
		AtomType:          format.Scalar,
	}
	for i := 1; i <= int(h.NumChannels); i++ {
		out.Channels = append(out.Channels, format.Channel{Name: "E" + strconv.Itoa(i), Unit: "uV", Gain: r.scale})
	}
	if r.vref {
		out.Channels = append(out.Channels, format.Channel{Name: "VREF", Unit: "uV", Gain: 1})
	}
	out.SingleSession(r.origin)

	r.hdr = out
	return nil
}

func (r *Reader) startTime() time.Time {
	h := &r.native
	if h.Year <= 0 || h.Month < 1 || h.Month > 12 {
		return time.Time{}
	}
	return time.Date(int(h.Year), time.Month(h.Month), int(h.Day), int(h.Hour), int(h.Minute),
		int(h.Second), int(h.Millisecond)*int(time.Millisecond), time.UTC)
}

// Native returns the parsed header and event codes.
func (r *Reader) Native() (Header, []string) {
	return r.native, r.codes
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

// value decodes value i of a frame.
func (r *Reader) value(frame []byte, i int) float64 {
	switch w := r.native.SampleBytes(); w {
	case 2:
		return float64(int16(r.order.Uint16(frame[i*w:])))
	case 4:
		return float64(math.Float32frombits(r.order.Uint32(frame[i*w:])))
	default:
		return math.Float64frombits(r.order.Uint64(frame[i*w:]))
	}
}

func (r *Reader) readFrames(tf1, n int) ([]byte, error) {
	buf := make([]byte, n*r.frameBytes)
	if _, err := r.f.ReadAt(buf, r.origin+int64(tf1)*int64(r.frameBytes)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading samples: %w", err)
	}
	return buf, nil
}

// ReadWindow implements format.Reader.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session != 0 {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	if err := dst.CheckWindow(r.hdr.Rows(), tf1, tf2, offset, r.hdr.NumTimeFrames); err != nil {
		return err
	}

	n := tf2 - tf1 + 1
	buf, err := r.readFrames(tf1, n)
	if err != nil {
		return err
	}
	nch := int(r.native.NumChannels)
	for tf := 0; tf < n; tf++ {
		frame := buf[tf*r.frameBytes:]
		for c := 0; c < nch; c++ {
			dst.Set(c, offset+tf, float32(r.value(frame, c)*r.scale))
		}
		if r.vref {
			dst.Set(nch, offset+tf, 0)
		}
	}
	return nil
}

// Markers scans the event channels. Event i yields code i+1, named after its four-character code.
func (r *Reader) Markers() ([]format.Marker, error) {
	nev := len(r.codes)
	if nev == 0 {
		return nil, nil
	}

	scanners := make([]*format.TriggerScanner, nev)
	for i := range scanners {
		name := r.codes[i]
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		scanners[i] = format.NewTriggerScanner(0, math.MaxUint32, func(int) string { return name })
	}

	const block = 4096
	nch := int(r.native.NumChannels)
	total := r.hdr.NumTimeFrames
	for tf := 0; tf < total; tf += block {
		n := min(block, total-tf)
		buf, err := r.readFrames(tf, n)
		if err != nil {
			return nil, err
		}
		for k := 0; k < n; k++ {
			frame := buf[k*r.frameBytes:]
			for i, s := range scanners {
				var v uint32
				if r.value(frame, nch+i) != 0 {
					v = uint32(i + 1)
				}
				s.Push(v)
			}
		}
	}

	var markers []format.Marker
	for _, s := range scanners {
		markers = append(markers, s.Finish()...)
	}
	format.SortMarkers(markers)
	return markers, nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
