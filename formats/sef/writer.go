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
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/tracks/format"
)

// Write encodes session 0 of src as SEF.
func Write(w io.Writer, src format.Source) error {
	in := src.Header()
	if in.AtomType == format.Vector {
		return ErrNotScalar
	}

	frames := in.NumTimeFrames
	if len(in.Sessions) > 0 {
		frames = in.Sessions[0].NumTimeFrames
	}
	hdr := Header{
		NumElectrodes:     int32(in.NumChannels()),
		NumAux:            int32(in.NumAux()),
		NumTimeFrames:     int32(frames),
		SamplingFrequency: float32(in.SamplingFrequency),
	}
	hdr.SetTime(in.StartTime)

	// Auxiliary channels go last, as the header only counts them.
	order := make([]int, 0, in.NumChannels())
	for pass := 0; pass < 2; pass++ {
		for i, ch := range in.Channels {
			if ch.Aux == (pass == 1) {
				order = append(order, i)
			}
		}
	}
	names := make([]string, len(order))
	for k, i := range order {
		names[k] = in.Channels[i].Name
	}

	head, err := encodeHeader(hdr, names)
	if err != nil {
		return fmt.Errorf("error encoding header: %w", err)
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(head); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	err = format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		sorted := format.NewMatrix(len(order), m.TimeFrames)
		for k, i := range order {
			copy(sorted.Row(k), m.Row(i))
		}
		return format.WriteMultiplexedFloat32(bw, sorted, len(order))
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
