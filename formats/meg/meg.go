// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package meg

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

const (
	Magic      = "MEGRAW01"
	headerSize = 32
	entrySize  = 32
)

// Sample formats.
const (
	Int16   = 1
	Int32   = 2
	Float32 = 3
)

// Channel types.
const (
	TypeMEG = iota
	TypeReference
	TypeEEG
	TypeTrigger
	TypeOther
)

// Header is the fixed part of a MEG raw header.
type Header struct {
	Version           uint16
	NumChannels       uint16
	SamplingFrequency float32
	NumTimeFrames     int // Stored on 24 bits
	SampleFormat      uint8
	Start             time.Time
	HeaderSize        uint32
}

// SampleBytes is the width of one stored value.
func (h *Header) SampleBytes() int {
	if h.SampleFormat == Int16 {
		return 2
	}
	return 4
}

// ParseHeader decodes the fixed header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < headerSize || string(b[:8]) != Magic {
		return Header{}, ErrNotMEG
	}
	be := binary.BigEndian
	h := Header{
		Version:           be.Uint16(b[8:]),
		NumChannels:       be.Uint16(b[10:]),
		SamplingFrequency: math.Float32frombits(be.Uint32(b[12:])),
		NumTimeFrames:     int(format.Uint24BE(b[16:])),
		SampleFormat:      b[19],
		HeaderSize:        be.Uint32(b[28:]),
	}
	if year, month := int(be.Uint16(b[20:])), int(b[22]); year > 0 && month >= 1 && month <= 12 {
		h.Start = time.Date(year, time.Month(month), int(b[23]), int(b[24]), int(b[25]), int(b[26]), 0, time.UTC)
	}
	return h, nil
}

// Entry is one channel table entry.
type Entry struct {
	Name string
	Type uint8
	Unit string
	Gain float32
}

func parseEntry(b []byte) Entry {
	return Entry{
		Name: format.CleanName(b[0:16]),
		Type: b[16],
		Unit: format.CleanName(b[20:28]),
		Gain: math.Float32frombits(binary.BigEndian.Uint32(b[28:])),
	}
}

// CalibrationPath returns the calibration file of a recording.
func CalibrationPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".cal"
}

// ReadCalibration parses "name factor" lines. Blank lines and lines starting with # are skipped.
func ReadCalibration(r io.Reader) (map[string]float64, error) {
	factors := map[string]float64{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d", ErrBadCalibration, line)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadCalibration, line, err)
		}
		factors[strings.ToLower(fields[0])] = v
	}
	return factors, scanner.Err()
}

// Format is the MEG raw decoder.
type Format struct{}

func (Format) Name() string { return "MEG" }

func (Format) Extensions() []string { return []string{".meg"} }

// ReadHeader answers header queries without requiring the calibration file.
func (Format) ReadHeader(path string) (*format.Header, error) {
	r, err := Open(path, &format.Options{Confirm: func(string) bool { return true }})
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

// Reader gives random access to a MEG raw file.
type Reader struct {
	f          *os.File
	log        *slog.Logger
	native     Header
	entries    []Entry
	trigger    int // Row of the trigger channel, -1 without one
	frameBytes int
	degraded   bool
	hdr        *format.Header
}

// Open opens a MEG raw file and its calibration. Without a calibration file the header gains
// are used alone, once opts confirms.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, log: opts.Log().With("format", "MEG"), trigger: -1}
	if err := r.load(path, size, opts); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(path string, size int64, opts *format.Options) error {
	b := make([]byte, headerSize)
	if _, err := r.f.ReadAt(b, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrNotMEG, err)
	}
	h, err := ParseHeader(b)
	if err != nil {
		return err
	}
	r.native = h

	switch h.SampleFormat {
	case Int16, Int32, Float32:
	default:
		return fmt.Errorf("%w: %d", ErrSampleFormat, h.SampleFormat)
	}
	nch := int(h.NumChannels)
	if nch == 0 || int64(h.HeaderSize) < int64(headerSize+nch*entrySize) || int64(h.HeaderSize) > size {
		return fmt.Errorf("%w: %d channels, header of %d bytes", ErrBadGeometry, nch, h.HeaderSize)
	}

	table := make([]byte, nch*entrySize)
	if _, err := r.f.ReadAt(table, headerSize); err != nil {
		return fmt.Errorf("error reading channel table: %w", err)
	}
	for i := 0; i < nch; i++ {
		r.entries = append(r.entries, parseEntry(table[i*entrySize:]))
	}

	factors, err := r.calibration(path, opts)
	if err != nil {
		return err
	}

	r.frameBytes = nch * h.SampleBytes()
	frames := h.NumTimeFrames
	if inFile := format.FramesFromSize(size, int64(h.HeaderSize), r.frameBytes); frames == 0 || frames > inFile {
		r.log.Warn("Recomputed time frame count from file size", "header", frames, "timeFrames", inFile)
		frames = inFile
	}

	out := &format.Header{
		Format:            "MEG",
		NumTimeFrames:     frames,
		SamplingFrequency: float64(h.SamplingFrequency),
		StartTime:         h.Start,
		AtomType:          format.Scalar,
	}
	for i, e := range r.entries {
		ch := format.Channel{Name: e.Name, Unit: e.Unit, Gain: float64(e.Gain)}
		if ch.Gain == 0 {
			ch.Gain = 1
		}
		switch e.Type {
		case TypeTrigger:
			if r.trigger < 0 {
				r.trigger = i
			}
			ch.Gain, ch.Aux = 1, true
		case TypeOther:
			ch.Aux = true
		}
		if e.Type != TypeTrigger && factors != nil {
			if k, ok := factors[strings.ToLower(e.Name)]; ok {
				ch.Gain *= k
			} else {
				r.log.Warn("No calibration factor", "channel", e.Name)
			}
		}
		out.Channels = append(out.Channels, ch)
	}
	format.ApplyNames(out.Channels)
	out.SingleSession(int64(h.HeaderSize))

	r.hdr = out
	return nil
}

func (r *Reader) calibration(path string, opts *format.Options) (map[string]float64, error) {
	calPath := CalibrationPath(path)
	f, err := os.Open(calPath)
	if errors.Is(err, fs.ErrNotExist) {
		if !opts.Ask(fmt.Sprintf("No calibration file %s, show uncalibrated values?", filepath.Base(calPath))) {
			return nil, fmt.Errorf("%w: %w", ErrNoCalibration, format.ErrDeclined)
		}
		r.log.Warn("Reading without calibration", "path", calPath)
		r.degraded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCalibration, err)
	}
	defer f.Close()
	return ReadCalibration(f)
}

// Degraded reports a file opened without its calibration.
func (r *Reader) Degraded() bool {
	return r.degraded
}

// Native returns the header and the channel table.
func (r *Reader) Native() (Header, []Entry) {
	return r.native, r.entries
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

func (r *Reader) value(frame []byte, c int) float64 {
	be := binary.BigEndian
	switch r.native.SampleFormat {
	case Int16:
		return float64(int16(be.Uint16(frame[2*c:])))
	case Int32:
		return float64(int32(be.Uint32(frame[4*c:])))
	default:
		return float64(math.Float32frombits(be.Uint32(frame[4*c:])))
	}
}

func (r *Reader) readFrames(tf1, n int) ([]byte, error) {
	buf := make([]byte, n*r.frameBytes)
	if _, err := r.f.ReadAt(buf, int64(r.native.HeaderSize)+int64(tf1)*int64(r.frameBytes)); err != nil && err != io.EOF {
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
	for tf := 0; tf < n; tf++ {
		frame := buf[tf*r.frameBytes:]
		for c := range r.hdr.Channels {
			dst.Set(c, offset+tf, float32(r.value(frame, c)*r.hdr.Channels[c].Gain))
		}
	}
	return nil
}

// Markers scans the trigger channel.
func (r *Reader) Markers() ([]format.Marker, error) {
	if r.trigger < 0 {
		return nil, nil
	}

	const block = 4096
	scanner := format.NewTriggerScanner(0, 0xFFFF, nil)
	total := r.hdr.NumTimeFrames
	for tf := 0; tf < total; tf += block {
		n := min(block, total-tf)
		buf, err := r.readFrames(tf, n)
		if err != nil {
			return nil, err
		}
		for k := 0; k < n; k++ {
			scanner.Push(uint32(int64(r.value(buf[k*r.frameBytes:], r.trigger))))
		}
	}
	return scanner.Finish(), nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
