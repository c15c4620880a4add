// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// Format is the EP/EPH decoder.
type Format struct{}

func (Format) Name() string { return "EP" }

func (Format) Extensions() []string { return []string{".ep", ".eph"} }

func (Format) ReadHeader(path string) (*format.Header, error) {
	r, err := Open(path, nil)
	if err != nil {
		return nil, err
	}
	return r.Header(), nil
}

func (Format) Open(path string, opts *format.Options) (format.Reader, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Open loads an .ep or .eph file.
func Open(path string, opts *format.Options) (*format.Memory, error) {
	f, _, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	withHeader := strings.EqualFold(filepath.Ext(path), ".eph")
	mem, err := Parse(f, withHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mem.Mrk, err = format.ReadMarkerFile(path); err != nil {
		opts.Log().Warn("Ignoring unreadable marker file", "format", "EP", "path", path, "err", err)
	}
	return mem, nil
}

// Parse decodes an ASCII payload, preceded by the "nch ntf sf" line when withHeader is set.
func Parse(r io.Reader, withHeader bool) (*format.Memory, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	nch, ntf := 0, -1
	sf := 0.0
	if withHeader {
		fields, ok := nextFields(scanner)
		if !ok || len(fields) < 3 {
			return nil, ErrBadEPHHeader
		}
		var err1, err2, err3 error
		nch, err1 = strconv.Atoi(fields[0])
		ntf, err2 = strconv.Atoi(fields[1])
		sf, err3 = strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil || nch <= 0 || ntf < 0 || sf < 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadEPHHeader, strings.Join(fields, " "))
		}
	}

	var values []float32
	frames := 0
	for ntf < 0 || frames < ntf {
		fields, ok := nextFields(scanner)
		if !ok {
			break
		}
		if nch == 0 {
			nch = len(fields)
		}
		if len(fields) != nch {
			return nil, fmt.Errorf("%w: time frame %d has %d values, expected %d", ErrRaggedLine, frames, len(fields), nch)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				if frames == 0 && !withHeader {
					return nil, ErrNotEP
				}
				return nil, fmt.Errorf("%w: time frame %d: %w", ErrRaggedLine, frames, err)
			}
			values = append(values, float32(v))
		}
		frames++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading samples: %w", err)
	}
	if nch == 0 {
		return nil, ErrNotEP
	}
	if ntf > frames {
		return nil, fmt.Errorf("%w: %d of %d", ErrFramesMissing, frames, ntf)
	}

	hdr := &format.Header{
		Format:            "EP",
		NumTimeFrames:     frames,
		SamplingFrequency: sf,
		AtomType:          format.Scalar,
	}
	for i := 1; i <= nch; i++ {
		hdr.Channels = append(hdr.Channels, format.Channel{Name: "e" + strconv.Itoa(i), Gain: 1})
	}
	hdr.SingleSession(0)

	// Values are read frame by frame, the matrix is row-major.
	data := format.NewMatrix(nch, frames)
	for tf := 0; tf < frames; tf++ {
		for c := 0; c < nch; c++ {
			data.Set(c, tf, values[tf*nch+c])
		}
	}
	return &format.Memory{Hdr: hdr, Data: data}, nil
}

func nextFields(scanner *bufio.Scanner) ([]string, bool) {
	for scanner.Scan() {
		if fields := strings.Fields(scanner.Text()); len(fields) > 0 {
			return fields, true
		}
	}
	return nil, false
}

// Write encodes session 0 of src as ASCII, with the .eph header line when withHeader is set.
func Write(w io.Writer, src format.Source, withHeader bool) error {
	in := src.Header()
	rows := in.Rows()
	frames := in.NumTimeFrames
	if len(in.Sessions) > 0 {
		frames = in.Sessions[0].NumTimeFrames
	}

	bw := bufio.NewWriter(w)
	if withHeader {
		fmt.Fprintf(bw, "%d\t%d\t%s\n", rows, frames, strconv.FormatFloat(in.SamplingFrequency, 'g', -1, 64))
	}
	err := format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		for tf := 0; tf < m.TimeFrames; tf++ {
			for row := 0; row < rows; row++ {
				if row > 0 {
					bw.WriteByte('\t')
				}
				bw.WriteString(strconv.FormatFloat(float64(m.At(row, tf)), 'g', -1, 32))
			}
			bw.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Export writes src to path, as .eph when the extension asks for it.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, src, strings.EqualFold(filepath.Ext(path), ".eph")); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return format.WriteMarkerFile(path, markers)
}
