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
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// Format is the EDF/BDF decoder.
type Format struct{}

func (Format) Name() string { return "EDF" }

func (Format) Extensions() []string { return []string{".edf", ".bdf", ".rec"} }

func (f Format) ReadHeader(path string) (*format.Header, error) {
	r, err := Open(path, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Header(), nil
}

func (f Format) Open(path string, opts *format.Options) (format.Reader, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Reader reads EDF/EDF+/BDF files.
type Reader struct {
	f          *os.File
	log        *slog.Logger
	hdr        *Header
	out        *format.Header
	data       []int // Indices of the sample signals
	annots     []int // Indices of the annotation signals
	status     int   // Index of the BDF Status signal in data, -1 when absent
	statusMask uint32
	offsets    []int // Byte offset of every signal within a record
	recordSize int
	spr        int // Samples per record of the sample signals
	records    int
	onsets     []float64 // Onset of every data record, in seconds
	buf        []byte
}

// Open opens an EDF/EDF+/BDF file for random access.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r, err := newReader(f, size, opts.Log().With("format", "EDF"))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(f *os.File, size int64, log *slog.Logger) (*Reader, error) {
	hdr, err := ParseHeader(f)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		f:      f,
		log:    log,
		hdr:    hdr,
		status: -1,
	}

	offset := 0
	r.offsets = make([]int, len(hdr.Signals))
	for i, sig := range hdr.Signals {
		r.offsets[i] = offset
		offset += sig.SamplesPerRecord * hdr.SampleBytes()
		if sig.IsAnnotation() {
			r.annots = append(r.annots, i)
			continue
		}
		if r.spr == 0 {
			r.spr = sig.SamplesPerRecord
		} else if sig.SamplesPerRecord != r.spr {
			return nil, fmt.Errorf("%w: %q has %d samples per record, expected %d",
				ErrMixedRates, sig.Label, sig.SamplesPerRecord, r.spr)
		}
		if hdr.IsBDF() && strings.EqualFold(sig.Label, StatusLabel) {
			r.status = len(r.data)
		}
		r.data = append(r.data, i)
	}
	if len(r.data) == 0 {
		return nil, ErrNoDataSignals
	}
	r.recordSize = offset
	r.buf = make([]byte, r.recordSize)

	// The record count of the header is not trusted beyond the file size.
	inFile := format.FramesFromSize(size, int64(hdr.HeaderBytes), r.recordSize)
	r.records = hdr.DataRecords
	if r.records < 0 || r.records > inFile {
		log.Warn("Recomputed data record count from file size",
			"header", hdr.DataRecords, "records", inFile)
		r.records = inFile
	}
	if r.records == 0 {
		return nil, fmt.Errorf("%w: no data record", ErrCorruptedHeader)
	}

	if err := r.readOnsets(); err != nil {
		return nil, err
	}

	if r.status >= 0 {
		if err := r.detectStatusMask(); err != nil {
			return nil, err
		}
	}

	frames := r.records * r.spr
	trimmed, err := r.trailingPadding()
	if err != nil {
		return nil, err
	}
	if trimmed > 0 {
		log.Warn("Trimmed padding at the end of the last data record", "timeFrames", trimmed)
		frames -= trimmed
	}

	r.out = r.buildHeader(frames)
	return r, nil
}

func (r *Reader) buildHeader(frames int) *format.Header {
	out := &format.Header{
		Format:        "EDF",
		NumTimeFrames: frames,
		StartTime:     r.hdr.StartTime,
		AtomType:      format.Scalar,
	}
	if r.hdr.IsBDF() {
		out.Format = "BDF"
	}
	if d := r.hdr.DataRecordDuration.Seconds(); d > 0 {
		out.SamplingFrequency = float64(r.spr) / d
	}

	for k, i := range r.data {
		sig := r.hdr.Signals[i]
		ch := format.Channel{
			Name: format.CleanName([]byte(sig.Label)),
			Unit: sig.PhysicalDimension,
		}
		switch {
		case k == r.status:
			ch.Gain = 1
			ch.Aux = true
		default:
			ch.Gain = sig.Gain()
			if ch.Gain != 0 {
				ch.Offset = float64(sig.DigitalMin) - sig.PhysicalMin/ch.Gain
			}
		}
		out.Channels = append(out.Channels, ch)
	}
	format.ApplyNames(out.Channels)

	out.Sessions = r.sessions(frames)
	return out
}

// sessions splits an EDF+D file on every gap between consecutive data records.
func (r *Reader) sessions(frames int) []format.Session {
	if !r.hdr.IsDiscontinuous() || r.spr == 0 {
		return []format.Session{{
			DataOrigin:    int64(r.hdr.HeaderBytes),
			NumTimeFrames: frames,
			StartTime:     r.hdr.StartTime,
		}}
	}

	duration := r.hdr.DataRecordDuration.Seconds()
	tolerance := 0.5 / (float64(r.spr) / math.Max(duration, 1e-9))

	table := format.NewSessionTable(int64(r.hdr.HeaderBytes), int64(r.recordSize), frames)
	for i, onset := range r.onsets {
		if i > 0 && math.Abs(onset-(r.onsets[i-1]+duration)) <= tolerance {
			continue
		}
		table.Start(i+1, i*r.spr, r.hdr.StartTime.Add(time.Duration(onset*float64(time.Second))))
	}
	return table.Build(r.hdr.StartTime)
}

// readOnsets reads the timekeeping annotation of every data record of an EDF+D file.
// Continuous files get evenly spaced onsets.
func (r *Reader) readOnsets() error {
	duration := r.hdr.DataRecordDuration.Seconds()
	r.onsets = make([]float64, r.records)
	for i := range r.onsets {
		r.onsets[i] = float64(i) * duration
	}
	if !r.hdr.IsDiscontinuous() || len(r.annots) == 0 {
		return nil
	}

	for rec := 0; rec < r.records; rec++ {
		if err := r.readRecord(rec); err != nil {
			return err
		}
		for _, a := range r.recordAnnotations(r.annots[0]) {
			if a.Text == "" {
				r.onsets[rec] = a.Onset
				break
			}
		}
	}
	return nil
}

func (r *Reader) readRecord(rec int) error {
	pos := int64(r.hdr.HeaderBytes) + int64(rec)*int64(r.recordSize)
	if _, err := r.f.ReadAt(r.buf, pos); err != nil && err != io.EOF {
		return fmt.Errorf("error reading data record %d: %w", rec, err)
	}
	return nil
}

func (r *Reader) recordAnnotations(signal int) []Annotation {
	from := r.offsets[signal]
	to := from + r.hdr.Signals[signal].SamplesPerRecord*r.hdr.SampleBytes()
	return parseTALs(r.buf[from:to])
}

// digital returns sample n of signal in the currently loaded record.
func (r *Reader) digital(signal, n int) int32 {
	pos := r.offsets[signal] + n*r.hdr.SampleBytes()
	if r.hdr.IsBDF() {
		return format.Int24LE(r.buf[pos:])
	}
	return int32(int16(binary.LittleEndian.Uint16(r.buf[pos:])))
}

func (r *Reader) detectStatusMask() error {
	if err := r.readRecord(0); err != nil {
		return err
	}
	values := make([]uint32, r.spr)
	for n := range values {
		values[n] = uint32(r.digital(r.data[r.status], n))
	}
	r.statusMask = format.TriggerMask(values)
	return nil
}

// trailingPadding counts the time frames at the end of the last data record that are filler:
// zeros (or +-1) in every sample channel of an EDF file, or a repetition of the final value in
// a BDF file. At least one time frame is kept.
func (r *Reader) trailingPadding() (int, error) {
	if err := r.readRecord(r.records - 1); err != nil {
		return 0, err
	}

	last := make([]int32, len(r.data))
	for k, i := range r.data {
		last[k] = r.digital(i, r.spr-1)
	}

	isPadding := func(n int) bool {
		for k, i := range r.data {
			if k == r.status {
				continue
			}
			v := r.digital(i, n)
			if r.hdr.IsBDF() {
				if v != last[k] {
					return false
				}
			} else if v < -1 || v > 1 {
				return false
			}
		}
		return true
	}

	if r.status >= 0 && len(r.data) == 1 {
		return 0, nil
	}

	run := 0
	for n := r.spr - 1; n >= 0 && isPadding(n); n-- {
		run++
	}
	if r.hdr.IsBDF() {
		// The first occurrence of the repeated value is genuine.
		run--
	}
	if run < 2 {
		return 0, nil
	}
	return min(run, r.records*r.spr-1), nil
}

// Header returns the vendor-neutral header.
func (r *Reader) Header() *format.Header {
	return r.out
}

// Native returns the parsed EDF header.
func (r *Reader) Native() *Header {
	return r.hdr
}

// ReadWindow implements format.Reader.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session < 0 || session >= len(r.out.Sessions) {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	s := r.out.Sessions[session]
	if err := dst.CheckWindow(r.out.Rows(), tf1, tf2, offset, s.NumTimeFrames); err != nil {
		return err
	}

	abs := s.FirstTimeFrame + tf1
	end := s.FirstTimeFrame + tf2
	col := offset
	for abs <= end {
		rec := abs / r.spr
		if err := r.readRecord(rec); err != nil {
			return err
		}
		first := abs - rec*r.spr
		last := min(r.spr-1, end-rec*r.spr)
		for k, i := range r.data {
			ch := r.out.Channels[k]
			row := dst.Row(k)
			for n := first; n <= last; n++ {
				v := r.digital(i, n)
				if k == r.status {
					row[col+n-first] = float32(uint32(v) & r.statusMask)
					continue
				}
				row[col+n-first] = float32((float64(v) - ch.Offset) * ch.Gain)
			}
		}
		col += last - first + 1
		abs = rec*r.spr + last + 1
	}
	return nil
}

// Markers extracts EDF+ annotations and BDF Status triggers, in absolute time frames.
func (r *Reader) Markers() ([]format.Marker, error) {
	var markers []format.Marker
	sf := r.out.SamplingFrequency

	var scanner *format.TriggerScanner
	if r.status >= 0 {
		scanner = format.NewTriggerScanner(0, r.statusMask, nil)
	}

	codes := map[string]int{}
	for rec := 0; rec < r.records && (len(r.annots) > 0 || scanner != nil); rec++ {
		if err := r.readRecord(rec); err != nil {
			return nil, err
		}

		if scanner != nil {
			n := min(r.spr, r.out.NumTimeFrames-rec*r.spr)
			for i := 0; i < n; i++ {
				scanner.Push(uint32(r.digital(r.data[r.status], i)))
			}
		}

		if sf == 0 {
			continue
		}
		for _, signal := range r.annots {
			for _, a := range r.recordAnnotations(signal) {
				if a.Text == "" {
					continue
				}
				from := r.timeFrameOf(a.Onset)
				to := from
				if a.Duration > 0 {
					to = from + int(math.Round(a.Duration*sf)) - 1
				}
				if from < 0 || from >= r.out.NumTimeFrames {
					continue
				}
				to = max(from, min(to, r.out.NumTimeFrames-1))

				code, err := strconv.Atoi(a.Text)
				if err != nil {
					var ok bool
					if code, ok = codes[a.Text]; !ok {
						code = len(codes) + 1
						codes[a.Text] = code
					}
				}

				markers = append(markers, format.Marker{
					From: from,
					To:   to,
					Code: code,
					Name: format.Truncate(a.Text, format.MaxMarkerName),
					Type: format.Event,
				})
			}
		}
	}

	if scanner != nil {
		markers = append(markers, scanner.Finish()...)
	}
	format.SortMarkers(markers)
	return markers, nil
}

// timeFrameOf converts an annotation onset to an absolute time frame, through the data record
// holding it so that EDF+D gaps are skipped.
func (r *Reader) timeFrameOf(onset float64) int {
	sf := r.out.SamplingFrequency
	rec := sort.Search(len(r.onsets), func(i int) bool { return r.onsets[i] > onset }) - 1
	if rec < 0 {
		rec = 0
	}
	n := int(math.Round((onset - r.onsets[rec]) * sf))
	if r.hdr.IsDiscontinuous() && n >= r.spr {
		n = r.spr - 1
	}
	return rec*r.spr + n
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
