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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// maxRecordBytes is the data record size recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF/EDF+/BDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	annot       int // Index of the annotation signal, -1 when absent
	dataRecords int // Number of data records written so far.
}

// Create creates a new writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = 256 * (hdr.SignalCount + 1)
	if hdr.Version == "" {
		hdr.Version = Version0
	}

	ew := &Writer{w: w, hdr: &hdr, annot: -1}
	for i, sig := range hdr.Signals {
		if sig.IsAnnotation() {
			ew.annot = i
			break
		}
	}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record. signals holds the physical samples of every
// non-annotation signal, in header order. When the header has an annotation signal, the
// timekeeping annotation of the record is written first, followed by annotations.
func (ew *Writer) WriteRecord(signals [][]float64, annotations ...Annotation) error {
	onset := float64(ew.dataRecords) * ew.hdr.DataRecordDuration.Seconds()
	return ew.WriteRecordAt(onset, signals, annotations...)
}

// WriteRecordAt writes a data record starting onset seconds after the start of the recording.
// Onsets that do not follow the previous record are only meaningful in EDF+D files.
func (ew *Writer) WriteRecordAt(onset float64, signals [][]float64, annotations ...Annotation) error {
	expected := ew.hdr.SignalCount
	if ew.annot >= 0 {
		expected--
	}
	if len(signals) != expected {
		return fmt.Errorf("%w: expected %d signals, got %d", ErrSignalCount, expected, len(signals))
	}

	size := ew.hdr.RecordSize()
	if size > maxRecordBytes {
		return fmt.Errorf("%w: %d bytes, max is %d bytes", ErrRecordTooLarge, size, maxRecordBytes)
	}

	writer := bufio.NewWriter(ew.w)
	width := ew.hdr.SampleBytes()
	buf := make([]byte, 4)

	k := 0
	for i, signal := range ew.hdr.Signals {
		if i == ew.annot {
			if err := ew.writeAnnotations(writer, signal, onset, annotations); err != nil {
				return err
			}
			continue
		}

		samples := signals[k]
		k++
		if len(samples) != signal.SamplesPerRecord {
			return fmt.Errorf("signal %q: expected %d samples, got %d", signal.Label, signal.SamplesPerRecord, len(samples))
		}
		for _, sample := range samples {
			digital := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if width == 3 {
				format.PutInt24LE(buf, digital)
			} else {
				binary.LittleEndian.PutUint16(buf, uint16(int16(digital)))
			}
			if _, err := writer.Write(buf[:width]); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

func (ew *Writer) writeAnnotations(w *bufio.Writer, signal Signal, onset float64, annotations []Annotation) error {
	b := formatTimekeeping(onset)
	for _, a := range annotations {
		b = append(b, formatTAL(a)...)
	}

	capacity := signal.SamplesPerRecord * ew.hdr.SampleBytes()
	if len(b) > capacity {
		return fmt.Errorf("%w: %d bytes of annotations in a %d bytes signal", ErrRecordTooLarge, len(b), capacity)
	}
	padded := make([]byte, capacity)
	copy(padded, b)
	_, err := w.Write(padded)
	return err
}

// writeHeader writes the header at the start of the file.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	_, err := ew.w.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)

	// A tiny helper keeps the first error and makes the field list readable.
	put := func(width int, s string) {
		if err != nil {
			return
		}
		// Fields are padded in bytes, not runes.
		if len(s) > width {
			s = s[:width]
		}
		_, err = writer.WriteString(s + strings.Repeat(" ", width-len(s)))
	}

	put(8, string(ew.hdr.Version))
	put(80, ew.hdr.PatientID)
	put(80, ew.hdr.RecordingID)
	put(8, ew.hdr.StartTime.Format("02.01.06"))
	put(8, ew.hdr.StartTime.Format("15.04.05"))
	put(8, strconv.Itoa(ew.hdr.HeaderBytes))
	put(44, ew.hdr.Reserved)
	put(8, strconv.Itoa(ew.hdr.DataRecords))
	put(8, formatDuration(ew.hdr.DataRecordDuration.Seconds()))
	put(4, strconv.Itoa(ew.hdr.SignalCount))

	// Signal headers are stored field by field.
	fields := []struct {
		width int
		get   func(s Signal) string
	}{
		{16, func(s Signal) string { return s.Label }},
		{80, func(s Signal) string { return s.TransducerType }},
		{8, func(s Signal) string { return s.PhysicalDimension }},
		{8, func(s Signal) string { return formatPhysicalValue(s.PhysicalMin) }},
		{8, func(s Signal) string { return formatPhysicalValue(s.PhysicalMax) }},
		{8, func(s Signal) string { return strconv.Itoa(s.DigitalMin) }},
		{8, func(s Signal) string { return strconv.Itoa(s.DigitalMax) }},
		{80, func(s Signal) string { return s.Prefiltering }},
		{8, func(s Signal) string { return strconv.Itoa(s.SamplesPerRecord) }},
		{32, func(s Signal) string { return s.Reserved }},
	}
	for _, field := range fields {
		for _, signal := range ew.hdr.Signals {
			put(field.width, field.get(signal))
		}
	}
	if err != nil {
		return err
	}

	// Ensure all data is flushed to the underlying writer
	return writer.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration
// factors, rounding to the nearest step and clamping to the digital range.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int32 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int32(digital)
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := strconv.FormatFloat(val, 'f', 2, 64)
	if len(s) > 8 {
		// Fall back to no decimal
		s = strconv.FormatFloat(val, 'f', 0, 64)
	}
	return s
}

func formatDuration(seconds float64) string {
	for prec := 6; prec >= 0; prec-- {
		s := strconv.FormatFloat(seconds, 'f', prec, 64)
		if len(s) <= 8 {
			s = trimZeros(s)
			return s
		}
	}
	return strconv.FormatFloat(seconds, 'f', 0, 64)
}

func trimZeros(s string) string {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case '0':
			continue
		case '.':
			return s[:i]
		default:
			return s[:i+1]
		}
	}
	return s
}
