// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ris

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/OpenPSG/tracks/format"
)

// Magic starts every RIS file.
const Magic = "RI01"

// Header is the RIS file header.
type Header struct {
	Magic             [4]byte
	NumSolutionPoints int32
	NumTimeFrames     int32
	SamplingFrequency float32
	IsInverseScalar   uint8
}

const headerSize = 17

// AtomType is the type of the stored results.
func (h *Header) AtomType() format.AtomType {
	if h.IsInverseScalar != 0 {
		return format.Scalar
	}
	return format.Vector
}

// Format is the RIS decoder.
type Format struct{}

func (Format) Name() string { return "RIS" }

func (Format) Extensions() []string { return []string{".ris"} }

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

// Reader gives random access to a RIS file.
type Reader struct {
	f      *os.File
	path   string
	native Header
	hdr    *format.Header
}

// Open opens a RIS file.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, path: path}
	if err := binary.Read(io.NewSectionReader(f, 0, size), binary.LittleEndian, &r.native); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, ErrNotRIS, err)
	}
	h := &r.native
	if string(h.Magic[:]) != Magic {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotRIS)
	}
	if h.NumSolutionPoints <= 0 || h.NumTimeFrames < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrBadGeometry)
	}

	out := &format.Header{
		Format:            "RIS",
		NumTimeFrames:     int(h.NumTimeFrames),
		SamplingFrequency: float64(h.SamplingFrequency),
		AtomType:          h.AtomType(),
	}
	for i := 1; i <= int(h.NumSolutionPoints); i++ {
		out.Channels = append(out.Channels, format.Channel{Name: "sp" + strconv.Itoa(i), Gain: 1})
	}

	inFile := format.FramesFromSize(size, headerSize, out.Rows()*4)
	if out.NumTimeFrames > inFile {
		opts.Log().Warn("Recomputed time frame count from file size", "format", "RIS",
			"header", out.NumTimeFrames, "timeFrames", inFile)
		out.NumTimeFrames = inFile
	}
	out.SingleSession(headerSize)

	r.hdr = out
	return r, nil
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

// ReadWindow implements format.Reader. Dipoles fill three rows per solution point.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session != 0 {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	if err := dst.CheckWindow(r.hdr.Rows(), tf1, tf2, offset, r.hdr.NumTimeFrames); err != nil {
		return err
	}
	return format.ReadMultiplexedFloat32(r.f, headerSize, r.hdr.Rows(), tf1, tf2, dst, offset)
}

// Markers reads the companion marker file.
func (r *Reader) Markers() ([]format.Marker, error) {
	return format.ReadMarkerFile(r.path)
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Write encodes session 0 of src as RIS. Scalar and positive sources are stored as scalar
// results, vector sources as dipoles.
func Write(w io.Writer, src format.Source) error {
	in := src.Header()
	frames := in.NumTimeFrames
	if len(in.Sessions) > 0 {
		frames = in.Sessions[0].NumTimeFrames
	}
	hdr := Header{
		NumSolutionPoints: int32(in.NumChannels()),
		NumTimeFrames:     int32(frames),
		SamplingFrequency: float32(in.SamplingFrequency),
	}
	copy(hdr.Magic[:], Magic)
	if in.AtomType != format.Vector {
		hdr.IsInverseScalar = 1
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	err := format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		return format.WriteMultiplexedFloat32(bw, m, in.Rows())
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Export writes src to path, and markers to its companion marker file.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, src); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return format.WriteMarkerFile(path, markers)
}
