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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// companion swaps the extension of path.
func companion(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Format is the Deltamed decoder.
type Format struct{}

func (Format) Name() string { return "Deltamed" }

func (Format) Extensions() []string { return []string{".eeg"} }

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

// Reader gives random access to a Deltamed recording.
type Reader struct {
	f          *os.File
	log        *slog.Logger
	path       string
	native     *Header
	frameBytes int
	hdr        *format.Header
}

// Open opens the samples at path together with their header file.
func Open(path string, opts *format.Options) (*Reader, error) {
	native, err := readHeaderFile(companion(path, ".txt"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		f:          f,
		log:        opts.Log().With("format", "Deltamed"),
		path:       path,
		native:     native,
		frameBytes: 2 * len(native.Channels),
	}
	r.hdr = &format.Header{
		Format:            "Deltamed",
		Channels:          native.Channels,
		NumTimeFrames:     format.FramesFromSize(size, 0, r.frameBytes),
		SamplingFrequency: native.SamplingRate,
		StartTime:         native.Start,
		AtomType:          format.Scalar,
	}
	if size%int64(r.frameBytes) != 0 {
		r.log.Warn("Ignoring a partial trailing time frame", "path", path)
	}
	r.hdr.SingleSession(0)
	return r, nil
}

func readHeaderFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoHeaderFile, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", format.ErrUnreadable, err)
	}
	defer f.Close()
	return ParseHeader(f)
}

// Native returns the parsed header file.
func (r *Reader) Native() *Header {
	return r.native
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

	n := tf2 - tf1 + 1
	buf := make([]byte, n*r.frameBytes)
	if _, err := r.f.ReadAt(buf, int64(tf1)*int64(r.frameBytes)); err != nil && err != io.EOF {
		return fmt.Errorf("error reading samples: %w", err)
	}
	for tf := 0; tf < n; tf++ {
		frame := buf[tf*r.frameBytes:]
		for c := range r.hdr.Channels {
			ch := &r.hdr.Channels[c]
			v := float64(int16(binary.LittleEndian.Uint16(frame[2*c:])))
			dst.Set(c, offset+tf, float32((v-ch.Offset)*ch.Gain))
		}
	}
	return nil
}

// MarkerRecords iterates the marker file of the recording. A recording without a marker file
// yields nothing.
func (r *Reader) MarkerRecords() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, size, err := format.OpenFile(companion(r.path, ".mrk"))
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(Record{}, err)
			return
		}
		defer f.Close()
		for rec, err := range Records(f, size) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Markers converts the marker file. Unnamed markers are named after their code.
func (r *Reader) Markers() ([]format.Marker, error) {
	var markers []format.Marker
	total := r.hdr.NumTimeFrames
	for rec, err := range r.MarkerRecords() {
		if err != nil {
			return nil, err
		}
		from := int(rec.Sample)
		if from >= total {
			continue
		}
		name := rec.Name
		if name == "" {
			name = strconv.Itoa(int(rec.Code))
		}
		markers = append(markers, format.Marker{
			From: from,
			To:   min(from+max(int(rec.Duration), 1)-1, total-1),
			Code: int(rec.Code),
			Name: format.Truncate(name, format.MaxMarkerName),
			Type: format.Event,
		})
	}
	format.SortMarkers(markers)
	return markers, nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
