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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// BlockFrames is the number of time frames per written block.
const BlockFrames = 256

// Write encodes session 0 of src. The acquisition is delimited by start and end codes and
// markers become block events.
func Write(w io.Writer, src format.Source, markers []format.Marker, compressed bool) error {
	in := src.Header()
	nch := in.Rows()
	if nch > MaxChannels {
		return fmt.Errorf("%w: %d", ErrTooManyChans, nch)
	}
	total := in.NumTimeFrames
	if len(in.Sessions) > 0 {
		total = in.Sessions[0].NumTimeFrames
	}

	var peak float64
	err := format.Walk(src, BlockFrames, func(m *format.Matrix, _ int) error {
		for _, v := range m.Data {
			peak = max(peak, math.Abs(float64(v)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	calibration := float32(1)
	if peak > 0 {
		calibration = float32(peak / math.MaxInt16)
	}

	events := make([][]Event, (total+BlockFrames-1)/BlockFrames)
	add := func(tf, code int) error {
		b := tf / BlockFrames
		if len(events[b]) == MaxEvents {
			return fmt.Errorf("%w: block %d", ErrTooManyEvents, b)
		}
		events[b] = append(events[b], Event{TimeFrame: uint16(tf % BlockFrames), Code: uint16(code)})
		return nil
	}
	if total > 0 {
		if err := add(0, CodeStart); err != nil {
			return err
		}
		for _, m := range markers {
			if m.From < 0 || m.From >= total {
				continue
			}
			if err := add(m.From, m.Code); err != nil {
				return err
			}
		}
		if err := add(total-1, CodeEnd); err != nil {
			return err
		}
	}

	template := BlockHeader{
		Magic:       MagicRaw,
		NumChannels: uint16(nch),
		Calibration: calibration,
	}
	if compressed {
		template.Magic = MagicCompressed
	}
	if in.SamplingFrequency > 0 {
		template.ClockPeriod = uint16(min(math.Round(1e6/in.SamplingFrequency), math.MaxUint16))
	}
	for i, ch := range in.Channels {
		if i < MaxChannels {
			copy(template.Names[i][:], ch.Name)
		}
	}

	bw := bufio.NewWriter(w)
	samples := make([]int16, nch*BlockFrames)
	err = format.Walk(src, BlockFrames, func(m *format.Matrix, tf int) error {
		b := tf / BlockFrames
		n := m.TimeFrames
		samples = samples[:nch*n]
		for k := 0; k < n; k++ {
			for c := 0; c < nch; c++ {
				v := math.Round(float64(m.At(c, k)) / float64(calibration))
				samples[k*nch+c] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
			}
		}

		var payload []byte
		if compressed {
			payload = Encode(samples, nch)
		} else {
			payload = make([]byte, 2*len(samples))
			for i, s := range samples {
				binary.LittleEndian.PutUint16(payload[2*i:], uint16(s))
			}
		}

		bh := template
		bh.Index = uint32(b)
		bh.NumTimeFrames = uint16(n)
		bh.PayloadSize = uint32(len(payload))
		bh.NumEvents = uint16(len(events[b]))
		copy(bh.Events[:], events[b])
		if err := binary.Write(bw, binary.LittleEndian, &bh); err != nil {
			return fmt.Errorf("error writing block header: %w", err)
		}
		if _, err := bw.Write(payload); err != nil {
			return fmt.Errorf("error writing block: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Export writes src to path, compressed when the extension is .rdf.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, src, markers, strings.EqualFold(filepath.Ext(path), ".rdf")); err != nil {
		return err
	}
	return f.Close()
}
