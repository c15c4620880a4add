// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wav

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Bits is the sample width of written files.
const Bits = 16

const fullScale = 1<<(Bits-1) - 1

// Write encodes session 0 of src as 16-bit PCM. Each channel is scaled to its own peak and
// the gains are kept in the INFO comment.
func Write(ws io.WriteSeeker, src format.Source) error {
	in := src.Header()
	rows := in.Rows()
	if rows > math.MaxUint16 {
		return fmt.Errorf("%w: %d", ErrTooManyChans, rows)
	}
	rate := int(math.Round(in.SamplingFrequency))
	if rate <= 0 {
		return ErrNoRate
	}

	peaks := make([]float64, rows)
	err := format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		for row := 0; row < rows; row++ {
			for _, v := range m.Row(row) {
				peaks[row] = max(peaks[row], math.Abs(float64(v)))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	gains := make([]float64, rows)
	for row, peak := range peaks {
		gains[row] = 1
		if peak > 0 {
			gains[row] = peak / fullScale
		}
	}

	enc := wav.NewEncoder(ws, rate, Bits, rows, formatPCM)
	enc.Metadata = &wav.Metadata{Comments: comment(in, gains)}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: rows, SampleRate: rate},
		SourceBitDepth: Bits,
	}
	err = format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		buf.Data = buf.Data[:0]
		for tf := 0; tf < m.TimeFrames; tf++ {
			for row := 0; row < rows; row++ {
				v := math.Round(float64(m.At(row, tf)) / gains[row])
				buf.Data = append(buf.Data, int(max(-fullScale, min(fullScale, v))))
			}
		}
		return enc.Write(buf)
	})
	if err != nil {
		return fmt.Errorf("error writing samples: %w", err)
	}
	return enc.Close()
}

// comment builds the calibration comment. Vector atoms are written one row per component.
func comment(h *format.Header, gains []float64) string {
	comps := h.AtomType.Components()
	names := make([]string, 0, len(gains))
	units := make([]string, 0, len(gains))
	for _, ch := range h.Channels {
		for k := 0; k < comps; k++ {
			name := ch.Name
			if comps > 1 {
				name += "xyz"[k : k+1]
			}
			names = append(names, escape(name))
			units = append(units, escape(ch.Unit))
		}
	}
	values := make([]string, len(gains))
	for i, g := range gains {
		values[i] = strconv.FormatFloat(g, 'g', -1, 64)
	}
	return "names=" + strings.Join(names, "|") +
		";units=" + strings.Join(units, "|") +
		";gains=" + strings.Join(values, "|")
}

var escaper = strings.NewReplacer("|", "_", ";", "_", "=", "_")

func escape(s string) string {
	return escaper.Replace(s)
}

// Export writes src to path.
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
