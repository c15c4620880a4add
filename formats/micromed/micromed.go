// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package micromed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/OpenPSG/tracks/format"
)

const (
	// HeaderSize is the size of the fixed header.
	HeaderSize = 640
	// CurrentHeaderType is the layout read without confirmation.
	CurrentHeaderType = 4
	// ElectrodeSize is the size of an electrode record.
	ElectrodeSize = 128
	triggerSize   = 6
	noteSize      = 44
	noteText      = 40
)

// Descriptor locates an area of the file.
type Descriptor struct {
	Name   [8]byte
	Start  uint32
	Length uint32
}

// Header is the fixed TRC header.
type Header struct {
	Title           [32]byte
	Laboratory      [32]byte
	Surname         [22]byte
	FirstName       [20]byte
	BirthMonth      uint8
	BirthDay        uint8
	BirthYear       uint8
	_               [19]byte
	Day             uint8
	Month           uint8
	Year            uint8 // Since 1900
	Hour            uint8
	Minute          uint8
	Second          uint8
	AcquisitionUnit uint16
	FileType        uint16
	DataStart       uint32
	NumChannels     uint16
	Multiplexer     uint16 // Bytes per time frame
	Rate            uint16 // Hz
	Bytes           uint16 // Per sample
	Compression     uint16
	Montages        uint16
	VideoStart      uint32
	MPEGDelay       uint16
	_               [15]byte
	HeaderType      uint8
	Code            Descriptor
	Electrode       Descriptor
	Note            Descriptor
	Flag            Descriptor
	Segment         Descriptor
	ImpedanceB      Descriptor
	ImpedanceE      Descriptor
	Montage         Descriptor
	Compress        Descriptor
	Average         Descriptor
	History         Descriptor
	Video           Descriptor
	EventA          Descriptor
	EventB          Descriptor
	Trigger         Descriptor
	_               [224]byte
}

// Time returns the recording start.
func (h *Header) Time() time.Time {
	if h.Month < 1 || h.Month > 12 || h.Day < 1 {
		return time.Time{}
	}
	return time.Date(1900+int(h.Year), time.Month(h.Month), int(h.Day), int(h.Hour), int(h.Minute), int(h.Second), 0, time.UTC)
}

// Electrode is one record of the electrode area.
type Electrode struct {
	Status        uint8
	Type          uint8
	PositiveInput [6]byte
	NegativeInput [6]byte
	LogicMin      int32
	LogicMax      int32
	LogicGround   int32
	PhysicalMin   int32
	PhysicalMax   int32
	Unit          int16
	_             [92]byte
}

// Accepted reports an electrode validated at acquisition.
func (e *Electrode) Accepted() bool {
	return e.Status&1 != 0
}

// Scale returns the physical unit name and the factor from the stored unit to it.
func (e *Electrode) Scale() (string, float64) {
	switch e.Unit {
	case -1:
		return "uV", 1e-3
	case 0:
		return "uV", 1
	case 1:
		return "uV", 1e3
	case 2:
		return "uV", 1e6
	case 100:
		return "%", 1
	case 101:
		return "bpm", 1
	default:
		return "", 1
	}
}

// Format is the Micromed decoder.
type Format struct{}

func (Format) Name() string { return "Micromed" }

func (Format) Extensions() []string { return []string{".trc"} }

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

// Reader gives random access to a TRC file.
type Reader struct {
	f          *os.File
	log        *slog.Logger
	native     Header
	electrodes []Electrode // In row order
	rowOf      []int       // Stored position to row
	frameBytes int
	hdr        *format.Header
}

// Open opens a TRC file. Old header types are read only when opts confirms.
func Open(path string, opts *format.Options) (*Reader, error) {
	f, size, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, log: opts.Log().With("format", "Micromed")}
	if err := r.load(size, opts); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load(size int64, opts *format.Options) error {
	h := &r.native
	if err := binary.Read(io.NewSectionReader(r.f, 0, size), binary.LittleEndian, h); err != nil {
		return fmt.Errorf("%w: %w", ErrNotMicromed, err)
	}
	if !bytes.Contains(bytes.ToUpper(h.Title[:]), []byte("MICROMED")) {
		return ErrNotMicromed
	}
	if h.HeaderType < CurrentHeaderType {
		r.log.Warn("Old header type", "headerType", h.HeaderType)
		if !opts.Ask(fmt.Sprintf("Micromed header type %d is older than %d, read it anyway?", h.HeaderType, CurrentHeaderType)) {
			return ErrOldHeader
		}
	}
	if h.Compression != 0 {
		return fmt.Errorf("%w: mode %d", ErrCompressed, h.Compression)
	}

	nch := int(h.NumChannels)
	width := int(h.Bytes)
	if nch == 0 || (width != 1 && width != 2 && width != 4) || int64(h.DataStart) > size {
		return fmt.Errorf("%w: %d channels of %d bytes", ErrBadGeometry, nch, width)
	}
	r.frameBytes = nch * width
	if h.Multiplexer != 0 && int(h.Multiplexer) != r.frameBytes {
		r.log.Warn("Multiplexer disagrees with the channel geometry", "multiplexer", h.Multiplexer, "frameBytes", r.frameBytes)
	}

	codes, err := r.readCodes(nch, size)
	if err != nil {
		return err
	}

	// Rows follow ascending electrode index.
	order := make([]int, nch)
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(i, j int) bool { return codes[order[i]] < codes[order[j]] })
	r.rowOf = make([]int, nch)
	for row, k := range order {
		r.rowOf[k] = row
	}

	out := &format.Header{
		Format:            "Micromed",
		NumTimeFrames:     format.FramesFromSize(size, int64(h.DataStart), r.frameBytes),
		SamplingFrequency: float64(h.Rate),
		StartTime:         h.Time(),
		AtomType:          format.Scalar,
	}
	for _, k := range order {
		e, err := r.readElectrode(int(codes[k]), size)
		if err != nil {
			return err
		}
		r.electrodes = append(r.electrodes, e)

		unit, scale := e.Scale()
		ch := format.Channel{
			Name:   format.CleanName(e.PositiveInput[:]),
			Unit:   unit,
			Offset: float64(e.LogicGround),
			Gain:   1,
			Bad:    !e.Accepted(),
		}
		if span := float64(e.LogicMax) - float64(e.LogicMin) + 1; span > 0 {
			ch.Gain = float64(e.PhysicalMax-e.PhysicalMin) / span * scale
		}
		out.Channels = append(out.Channels, ch)
	}
	format.ApplyNames(out.Channels)
	out.SingleSession(int64(h.DataStart))

	r.hdr = out
	return nil
}

func (r *Reader) readCodes(nch int, size int64) ([]uint16, error) {
	codes := make([]uint16, nch)
	d := r.native.Code
	if d.Start == 0 {
		for i := range codes {
			codes[i] = uint16(i)
		}
		return codes, nil
	}
	if int64(d.Start)+int64(2*nch) > size {
		return nil, fmt.Errorf("%w: code area past the end of file", ErrBadGeometry)
	}
	if err := binary.Read(io.NewSectionReader(r.f, int64(d.Start), int64(2*nch)), binary.LittleEndian, codes); err != nil {
		return nil, fmt.Errorf("error reading code area: %w", err)
	}
	return codes, nil
}

func (r *Reader) readElectrode(index int, size int64) (Electrode, error) {
	var e Electrode
	off := int64(r.native.Electrode.Start) + int64(index)*ElectrodeSize
	if r.native.Electrode.Start == 0 || off+ElectrodeSize > size {
		return e, fmt.Errorf("%w: electrode %d", ErrBadElectrode, index)
	}
	if err := binary.Read(io.NewSectionReader(r.f, off, ElectrodeSize), binary.LittleEndian, &e); err != nil {
		return e, fmt.Errorf("error reading electrode %d: %w", index, err)
	}
	return e, nil
}

// Native returns the parsed header.
func (r *Reader) Native() Header {
	return r.native
}

// Electrodes returns the electrode records in row order.
func (r *Reader) Electrodes() []Electrode {
	return r.electrodes
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
	w := int(r.native.Bytes)
	buf := make([]byte, n*r.frameBytes)
	if _, err := r.f.ReadAt(buf, int64(r.native.DataStart)+int64(tf1)*int64(r.frameBytes)); err != nil && err != io.EOF {
		return fmt.Errorf("error reading samples: %w", err)
	}
	for tf := 0; tf < n; tf++ {
		frame := buf[tf*r.frameBytes:]
		for k, row := range r.rowOf {
			var v uint32
			switch w {
			case 1:
				v = uint32(frame[k])
			case 2:
				v = uint32(binary.LittleEndian.Uint16(frame[2*k:]))
			default:
				v = binary.LittleEndian.Uint32(frame[4*k:])
			}
			ch := &r.hdr.Channels[row]
			dst.Set(row, offset+tf, float32((float64(v)-ch.Offset)*ch.Gain))
		}
	}
	return nil
}

// Markers reads the trigger and note areas.
func (r *Reader) Markers() ([]format.Marker, error) {
	total := r.hdr.NumTimeFrames
	var markers []format.Marker

	if d := r.native.Trigger; d.Start != 0 && d.Length >= triggerSize {
		buf := make([]byte, d.Length)
		if _, err := r.f.ReadAt(buf, int64(d.Start)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading trigger area: %w", err)
		}
		for off := 0; off+triggerSize <= len(buf); off += triggerSize {
			sample := binary.LittleEndian.Uint32(buf[off:])
			if sample == math.MaxUint32 {
				break
			}
			value := int(binary.LittleEndian.Uint16(buf[off+4:]))
			if int64(sample) >= int64(total) {
				continue
			}
			markers = append(markers, format.Marker{
				From: int(sample),
				To:   int(sample),
				Code: value,
				Name: strconv.Itoa(value),
				Type: format.Trigger,
			})
		}
	}

	if d := r.native.Note; d.Start != 0 && d.Length >= noteSize {
		buf := make([]byte, d.Length)
		if _, err := r.f.ReadAt(buf, int64(d.Start)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading note area: %w", err)
		}
		codes := map[string]int{}
		for off := 0; off+noteSize <= len(buf); off += noteSize {
			sample := binary.LittleEndian.Uint32(buf[off:])
			if sample == 0 {
				break
			}
			if int64(sample) >= int64(total) {
				continue
			}
			text := format.CleanName(buf[off+4 : off+4+noteText])
			code, ok := codes[text]
			if !ok {
				code = len(codes) + 1
				codes[text] = code
			}
			markers = append(markers, format.Marker{
				From: int(sample),
				To:   int(sample),
				Code: code,
				Name: format.Truncate(text, format.MaxMarkerName),
				Type: format.Event,
			})
		}
	}

	format.SortMarkers(markers)
	return markers, nil
}

// Close implements format.Reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
