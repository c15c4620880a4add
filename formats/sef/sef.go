// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package sef

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// Magic starts every SEF file.
const Magic = "SE01"

const nameSize = 8

// Header is the fixed part of a SEF header.
type Header struct {
	Magic             [4]byte
	NumElectrodes     int32
	NumAux            int32
	NumTimeFrames     int32
	SamplingFrequency float32
	Year              int16
	Month             int16
	Day               int16
	Hour              int16
	Minute            int16
	Second            int16
	Millisecond       int16
}

// Time returns the recording start, zero when the header carries no date.
func (h *Header) Time() time.Time {
	if h.Year <= 0 || h.Month < 1 || h.Month > 12 || h.Day < 1 {
		return time.Time{}
	}
	return time.Date(int(h.Year), time.Month(h.Month), int(h.Day), int(h.Hour), int(h.Minute),
		int(h.Second), int(h.Millisecond)*int(time.Millisecond), time.UTC)
}

// SetTime stores t in the date fields.
func (h *Header) SetTime(t time.Time) {
	if t.IsZero() {
		return
	}
	h.Year, h.Month, h.Day = int16(t.Year()), int16(t.Month()), int16(t.Day())
	h.Hour, h.Minute, h.Second = int16(t.Hour()), int16(t.Minute()), int16(t.Second())
	h.Millisecond = int16(t.Nanosecond() / int(time.Millisecond))
}

// Origin is the byte offset of the first sample.
func (h *Header) Origin() int64 {
	return int64(binary.Size(Header{})) + int64(h.NumElectrodes)*nameSize
}

// Format is the SEF decoder.
type Format struct{}

func (Format) Name() string { return "SEF" }

func (Format) Extensions() []string { return []string{".sef"} }

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

// Reader gives random access to a SEF file.
type Reader struct {
	f      *os.File
	path   string
	native Header
	hdr    *format.Header
}

// Open opens a SEF file.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, path: path}
	if err := r.load(size, opts); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(size int64, opts *format.Options) error {
	if err := binary.Read(io.NewSectionReader(r.f, 0, size), binary.LittleEndian, &r.native); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSEF, err)
	}
	h := &r.native
	if string(h.Magic[:]) != Magic {
		return ErrNotSEF
	}
	if h.NumElectrodes <= 0 || h.NumAux < 0 || h.NumAux > h.NumElectrodes || h.NumTimeFrames < 0 {
		return ErrBadGeometry
	}

	names := make([]byte, int(h.NumElectrodes)*nameSize)
	if _, err := r.f.ReadAt(names, int64(binary.Size(Header{}))); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	frames := int(h.NumTimeFrames)
	inFile := format.FramesFromSize(size, h.Origin(), int(h.NumElectrodes)*4)
	if frames > inFile {
		opts.Log().Warn("Recomputed time frame count from file size", "format", "SEF",
			"header", frames, "timeFrames", inFile)
		frames = inFile
	}

	out := &format.Header{
		Format:            "SEF",
		NumTimeFrames:     frames,
		SamplingFrequency: float64(h.SamplingFrequency),
		StartTime:         h.Time(),
		AtomType:          format.Scalar,
	}
	for i := 0; i < int(h.NumElectrodes); i++ {
		out.Channels = append(out.Channels, format.Channel{
			Name: format.CleanName(names[i*nameSize : (i+1)*nameSize]),
			Gain: 1,
		})
	}
	format.ApplyNames(out.Channels)
	// The trailing NumAux electrodes are auxiliary whatever their names.
	for i := len(out.Channels) - int(h.NumAux); i < len(out.Channels); i++ {
		out.Channels[i].Aux = true
	}
	out.SingleSession(h.Origin())

	r.hdr = out
	return nil
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
	return format.ReadMultiplexedFloat32(r.f, r.native.Origin(), r.hdr.Rows(), tf1, tf2, dst, offset)
}

// Markers reads the companion marker file.
func (r *Reader) Markers() ([]format.Marker, error) {
	return format.ReadMarkerFile(r.path)
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}

// encodeHeader builds the header and name table for channels.
func encodeHeader(h Header, names []string) ([]byte, error) {
	var buf bytes.Buffer
	copy(h.Magic[:], Magic)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	for _, name := range names {
		field := make([]byte, nameSize)
		copy(field, name)
		buf.Write(field)
	}
	return buf.Bytes(), nil
}
