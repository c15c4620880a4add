// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package brainvision

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// Binary sample encodings.
const (
	Int16   = "INT_16"
	Int32   = "INT_32"
	Uint16  = "UINT_16"
	Float32 = "IEEE_FLOAT_32"
)

// Info is the layout described by a header file.
type Info struct {
	DataFile         string
	MarkerFile       string
	Vectorized       bool
	BinaryFormat     string
	BigEndian        bool
	NumChannels      int
	SamplingInterval float64 // Microseconds
	DataPoints       int     // 0 when absent
}

// SampleBytes is the width of one stored value.
func (i *Info) SampleBytes() int {
	switch i.BinaryFormat {
	case Int16, Uint16:
		return 2
	default:
		return 4
	}
}

// Format is the BrainVision decoder.
type Format struct{}

func (Format) Name() string { return "BrainVision" }

func (Format) Extensions() []string { return []string{".vhdr"} }

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

// Reader gives random access to a BrainVision recording.
type Reader struct {
	f       *os.File
	log     *slog.Logger
	info    Info
	order   binary.ByteOrder
	total   int
	hdr     *format.Header
	markers []format.Marker
}

// Open parses the header file at path and opens its data file.
func Open(path string, opts *format.Options) (*Reader, error) {
	r := &Reader{log: opts.Log().With("format", "BrainVision")}
	if err := r.load(path); err != nil {
		if r.f != nil {
			_ = r.f.Close()
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseHeader reads the layout and channel table of a header file.
func ParseHeader(rd io.Reader) (Info, []format.Channel, error) {
	d, err := parseDocument(rd)
	if err != nil {
		return Info{}, nil, fmt.Errorf("error reading header: %w", err)
	}
	sig := strings.ToLower(d.signature)
	if !strings.HasPrefix(sig, "brain vision") && !strings.HasPrefix(sig, "brainvision") ||
		!strings.Contains(sig, "header file") {
		return Info{}, nil, ErrNotBrainVision
	}

	if df := d.get("Common Infos", "DataFormat"); df != "" && !strings.EqualFold(df, "BINARY") {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrDataFormat, df)
	}

	info := Info{
		DataFile:     d.get("Common Infos", "DataFile"),
		MarkerFile:   d.get("Common Infos", "MarkerFile"),
		Vectorized:   strings.EqualFold(d.get("Common Infos", "DataOrientation"), "VECTORIZED"),
		BinaryFormat: strings.ToUpper(d.get("Binary Infos", "BinaryFormat")),
		BigEndian:    strings.EqualFold(d.get("Binary Infos", "UseBigEndianOrder"), "YES"),
	}
	switch info.BinaryFormat {
	case "":
		info.BinaryFormat = Int16
	case Int16, Int32, Uint16, Float32:
	default:
		return Info{}, nil, fmt.Errorf("%w: %s", ErrBinaryFormat, info.BinaryFormat)
	}

	if info.NumChannels, err = strconv.Atoi(d.get("Common Infos", "NumberOfChannels")); err != nil || info.NumChannels <= 0 {
		return Info{}, nil, fmt.Errorf("%w: NumberOfChannels", ErrBadHeader)
	}
	if info.SamplingInterval, err = strconv.ParseFloat(d.get("Common Infos", "SamplingInterval"), 64); err != nil || info.SamplingInterval < 0 {
		return Info{}, nil, fmt.Errorf("%w: SamplingInterval", ErrBadHeader)
	}
	if dp := d.get("Common Infos", "DataPoints"); dp != "" {
		info.DataPoints, _ = strconv.Atoi(dp)
	}

	channels := make([]format.Channel, info.NumChannels)
	for i := range channels {
		channels[i] = format.Channel{Name: "Ch" + strconv.Itoa(i+1), Unit: "uV", Gain: 1}
	}
	for _, e := range d.entries("Channel Infos") {
		index, ok := strings.CutPrefix(e.key, "Ch")
		n, err := strconv.Atoi(index)
		if !ok || err != nil || n < 1 || n > info.NumChannels {
			continue
		}
		ch := &channels[n-1]
		fields := splitFields(e.value)
		if name := format.CleanName([]byte(fields[0])); name != "" {
			ch.Name = name
		}
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			if ch.Gain, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
				return Info{}, nil, fmt.Errorf("%w: resolution of %s", ErrBadHeader, e.key)
			}
		}
		if len(fields) > 3 {
			if unit := format.CleanName([]byte(fields[3])); unit != "" {
				ch.Unit = strings.ReplaceAll(unit, "µ", "u")
			}
		}
	}
	format.ApplyNames(channels)
	return info, channels, nil
}

func (r *Reader) load(path string) error {
	hf, _, err := format.OpenFile(path)
	if err != nil {
		return err
	}
	info, channels, err := ParseHeader(hf)
	_ = hf.Close()
	if err != nil {
		return err
	}
	r.info = info
	r.order = binary.LittleEndian
	if info.BigEndian {
		r.order = binary.BigEndian
	}

	dir := filepath.Dir(path)
	dataPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".eeg"
	if info.DataFile != "" {
		dataPath = filepath.Join(dir, info.DataFile)
	}
	var size int64
	if r.f, size, err = format.OpenFile(dataPath); err != nil {
		return fmt.Errorf("data file: %w", err)
	}

	r.total = format.FramesFromSize(size, 0, info.NumChannels*info.SampleBytes())
	if info.DataPoints > 0 && info.DataPoints != r.total {
		r.log.Warn("DataPoints disagrees with the data file size", "header", info.DataPoints, "timeFrames", r.total)
		if !info.Vectorized {
			r.total = min(r.total, info.DataPoints)
		} else {
			// Vectorized rows are DataPoints long whatever trails them.
			r.total = info.DataPoints
		}
	}

	out := &format.Header{
		Format:        "BrainVision",
		Channels:      channels,
		NumTimeFrames: r.total,
		AtomType:      format.Scalar,
	}
	if info.SamplingInterval > 0 {
		out.SamplingFrequency = 1e6 / info.SamplingInterval
	}

	var segments []segment
	if info.MarkerFile != "" {
		markerPath := filepath.Join(dir, info.MarkerFile)
		if r.markers, segments, err = readMarkerFile(markerPath, r.total); err != nil {
			r.log.Warn("Ignoring unreadable marker file", "path", markerPath, "err", err)
			r.markers, segments = nil, nil
		}
	}

	frameBytes := int64(info.NumChannels * info.SampleBytes())
	table := format.NewSessionTable(0, frameBytes, r.total)
	for _, s := range segments {
		table.Start(s.tf+1, s.tf, s.start)
	}
	if len(segments) > 0 {
		out.StartTime = segments[0].start
	}
	out.Sessions = table.Build(out.StartTime)

	r.hdr = out
	return nil
}

// Native returns the layout read from the header file.
func (r *Reader) Native() Info {
	return r.info
}

// Header implements format.Reader.
func (r *Reader) Header() *format.Header {
	return r.hdr
}

func (r *Reader) value(b []byte) float64 {
	switch r.info.BinaryFormat {
	case Int16:
		return float64(int16(r.order.Uint16(b)))
	case Uint16:
		return float64(r.order.Uint16(b))
	case Int32:
		return float64(int32(r.order.Uint32(b)))
	default:
		return float64(math.Float32frombits(r.order.Uint32(b)))
	}
}

// ReadWindow implements format.Reader.
func (r *Reader) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session < 0 || session >= len(r.hdr.Sessions) {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	s := r.hdr.Sessions[session]
	if err := dst.CheckWindow(r.hdr.Rows(), tf1, tf2, offset, s.NumTimeFrames); err != nil {
		return err
	}

	nch := r.info.NumChannels
	w := r.info.SampleBytes()
	abs := int64(s.FirstTimeFrame + tf1)
	n := tf2 - tf1 + 1

	if r.info.Vectorized {
		buf := make([]byte, n*w)
		for c := 0; c < nch; c++ {
			if _, err := r.f.ReadAt(buf, (int64(c)*int64(r.total)+abs)*int64(w)); err != nil && err != io.EOF {
				return fmt.Errorf("error reading samples: %w", err)
			}
			gain := r.hdr.Channels[c].Gain
			for k := 0; k < n; k++ {
				dst.Set(c, offset+k, float32(r.value(buf[k*w:])*gain))
			}
		}
		return nil
	}

	frameBytes := nch * w
	buf := make([]byte, n*frameBytes)
	if _, err := r.f.ReadAt(buf, abs*int64(frameBytes)); err != nil && err != io.EOF {
		return fmt.Errorf("error reading samples: %w", err)
	}
	for k := 0; k < n; k++ {
		frame := buf[k*frameBytes:]
		for c := 0; c < nch; c++ {
			dst.Set(c, offset+k, float32(r.value(frame[c*w:])*r.hdr.Channels[c].Gain))
		}
	}
	return nil
}

// Markers returns the markers of the marker file, New Segment markers excepted.
func (r *Reader) Markers() ([]format.Marker, error) {
	return r.markers, nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
