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
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/OpenPSG/tracks/format"
)

// Export writes session 0 of src as samples at path with its header and marker files. Each
// channel gets the gain that maps its peak to the int16 range.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	in := src.Header()
	rows := in.Rows()

	peaks := make([]float64, rows)
	err := format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		for c := 0; c < rows; c++ {
			for _, v := range m.Row(c) {
				peaks[c] = max(peaks[c], math.Abs(float64(v)))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h := &Header{SamplingRate: in.SamplingFrequency, Start: in.StartTime}
	for c := 0; c < rows; c++ {
		ch := format.Channel{Name: fmt.Sprintf("ch%d", c+1), Unit: "uV", Gain: 1}
		if c < len(in.Channels) {
			ch.Name = in.Channels[c].Name
			if in.Channels[c].Unit != "" {
				ch.Unit = in.Channels[c].Unit
			}
		}
		if peaks[c] > 0 {
			ch.Gain = peaks[c] / math.MaxInt16
		}
		h.Channels = append(h.Channels, ch)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	frame := make([]byte, 2*rows)
	err = format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		for tf := 0; tf < m.TimeFrames; tf++ {
			for c := 0; c < rows; c++ {
				v := math.Round(float64(m.At(c, tf)) / h.Channels[c].Gain)
				binary.LittleEndian.PutUint16(frame[2*c:], uint16(int16(max(math.MinInt16, min(math.MaxInt16, v)))))
			}
			if _, err := bw.Write(frame); err != nil {
				return fmt.Errorf("error writing samples: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := writeFile(companion(path, ".txt"), func(f *os.File) error { return WriteHeader(f, h) }); err != nil {
		return err
	}
	if len(markers) == 0 {
		return nil
	}
	records := make([]Record, 0, len(markers))
	for _, m := range markers {
		records = append(records, Record{
			Sample:   uint32(max(m.From, 0)),
			Duration: uint32(max(m.Duration(), 1)),
			Code:     uint16(m.Code),
			Name:     m.Name,
		})
	}
	return writeFile(companion(path, ".mrk"), func(f *os.File) error { return WriteMarkers(f, records) })
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
