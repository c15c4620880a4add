// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// Export writes src as EDF+ (or BDF+ when path ends with .bdf), with markers as annotations.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	in := src.Header()
	if in.AtomType != format.Scalar {
		return fmt.Errorf("edf: cannot store %s samples: %w", in.AtomType, format.ErrUnsupported)
	}
	if in.NumChannels() == 0 {
		return fmt.Errorf("edf: no channel to export: %w", format.ErrOutOfRange)
	}
	bdf := strings.EqualFold(filepath.Ext(path), ".bdf")

	// Physical ranges come from a first pass over the data.
	nch := in.NumChannels()
	lo := make([]float64, nch)
	hi := make([]float64, nch)
	for c := range lo {
		lo[c], hi[c] = math.Inf(1), math.Inf(-1)
	}
	err := format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		for c := 0; c < nch; c++ {
			for _, v := range m.Row(c) {
				lo[c] = math.Min(lo[c], float64(v))
				hi[c] = math.Max(hi[c], float64(v))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	hdr := Header{
		Version:     Version0,
		PatientID:   "X X X X",
		RecordingID: "Startdate X X X X",
		StartTime:   in.StartTime,
	}
	if hdr.StartTime.IsZero() {
		hdr.StartTime = time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	dmin, dmax, width := -32768, 32767, 2
	if bdf {
		hdr.Version = VersionBDF
		dmin, dmax, width = -8388608, 8388607, 3
	}

	sf := in.SamplingFrequency
	if sf <= 0 {
		sf = 1
	}
	spr := max(1, int(math.Round(sf)))
	if limit := maxRecordBytes / 2 / (nch * width); spr > limit {
		spr = max(1, limit)
	}
	hdr.DataRecordDuration = time.Duration(float64(spr) / sf * float64(time.Second))

	for c, ch := range in.Channels {
		pmin, pmax := lo[c], hi[c]
		if math.IsInf(pmin, 0) || pmin == pmax {
			pmin, pmax = pmin-1, pmax+1
			if math.IsInf(pmin, 0) {
				pmin, pmax = -1, 1
			}
		}
		// The 8-character fields lose precision, so the range is widened to what gets written.
		pmin = math.Floor(pmin)
		pmax = math.Ceil(pmax)
		hdr.Signals = append(hdr.Signals, Signal{
			Label:             ch.Name,
			PhysicalDimension: ch.Unit,
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        dmin,
			DigitalMax:        dmax,
			SamplesPerRecord:  spr,
		})
	}

	total := in.NumTimeFrames
	if len(in.Sessions) > 0 {
		total = in.Sessions[0].NumTimeFrames
	}
	records := (total + spr - 1) / spr

	// Markers go to the record holding their start.
	perRecord := make([][]Annotation, records)
	annotBytes := len(formatTimekeeping(float64(records) * hdr.DataRecordDuration.Seconds()))
	need := 0
	for _, m := range markers {
		if m.From < 0 || m.From >= total {
			continue
		}
		a := Annotation{Onset: float64(m.From) / sf, Text: m.Name}
		if m.To > m.From {
			a.Duration = float64(m.Duration()) / sf
		}
		rec := m.From / spr
		perRecord[rec] = append(perRecord[rec], a)
	}
	for _, list := range perRecord {
		n := annotBytes
		for _, a := range list {
			n += len(formatTAL(a))
		}
		need = max(need, n)
	}
	hdr.Reserved = "EDF+C"
	if bdf {
		hdr.Reserved = "BDF+C"
	}
	label := AnnotationsLabel
	if bdf {
		label = BDFAnnotationsLabel
	}
	hdr.Signals = append(hdr.Signals, Signal{
		Label:            label,
		DigitalMin:       dmin,
		DigitalMax:       dmax,
		PhysicalMin:      -1,
		PhysicalMax:      1,
		SamplesPerRecord: (need + width - 1) / width,
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	ew, err := Create(f, hdr)
	if err != nil {
		return err
	}

	signals := make([][]float64, nch)
	for c := range signals {
		signals[c] = make([]float64, 0, spr)
	}
	rec := 0
	flush := func() error {
		for c := range signals {
			// EDF pads with digital zeros, BDF repeats the last value.
			sig := hdr.Signals[c]
			pad := sig.PhysicalMin - float64(sig.DigitalMin)*sig.Gain()
			if n := len(signals[c]); bdf && n > 0 {
				pad = signals[c][n-1]
			}
			for len(signals[c]) < spr {
				signals[c] = append(signals[c], pad)
			}
		}
		if err := ew.WriteRecord(signals, perRecord[rec]...); err != nil {
			return err
		}
		rec++
		for c := range signals {
			signals[c] = signals[c][:0]
		}
		return nil
	}

	err = format.Walk(src, spr*16, func(m *format.Matrix, _ int) error {
		for tf := 0; tf < m.TimeFrames; tf++ {
			for c := 0; c < nch; c++ {
				signals[c] = append(signals[c], float64(m.At(c, tf)))
			}
			if len(signals[0]) == spr {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(signals[0]) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	if err := ew.Close(); err != nil {
		return err
	}
	return f.Close()
}
