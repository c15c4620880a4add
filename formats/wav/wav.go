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
	"log/slog"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
	"github.com/go-audio/wav"
)

// WAVE format tags accepted by the decoder.
const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Format is the WAVE decoder.
type Format struct{}

func (Format) Name() string { return "WAV" }

func (Format) Extensions() []string { return []string{".wav"} }

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

// Open decodes a WAVE file into memory.
func Open(path string, opts *format.Options) (*format.Memory, error) {
	f, _, err := format.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem, err := Decode(f, opts.Log().With("format", "WAV"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mem.Mrk, err = format.ReadMarkerFile(path); err != nil {
		opts.Log().Warn("Ignoring unreadable marker file", "format", "WAV", "path", path, "err", err)
	}
	return mem, nil
}

// Decode reads the PCM payload of rs and the calibration comment, if any.
func Decode(rs io.ReadSeeker, log *slog.Logger) (*format.Memory, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if tag := dec.WavAudioFormat; tag != formatPCM && tag != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %#x", ErrNotPCM, tag)
	}
	bits := int(dec.BitDepth)
	switch bits {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrBitDepth, bits)
	}
	nch := int(dec.NumChans)
	if nch == 0 || dec.SampleRate == 0 {
		return nil, ErrBadGeometry
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("error reading samples: %w", err)
	}
	frames := len(buf.Data) / nch
	if len(buf.Data)%nch != 0 {
		log.Warn("Dropping incomplete trailing time frame", "samples", len(buf.Data)%nch)
	}

	channels := make([]format.Channel, nch)
	for c := range channels {
		channels[c] = format.Channel{Name: "ch" + strconv.Itoa(c+1), Gain: 1}
		// 8-bit WAVE samples are unsigned.
		if bits == 8 {
			channels[c].Offset = 128
		}
	}
	if comment := readComment(rs, log); comment != "" {
		if err := applyComment(comment, channels); err != nil {
			return nil, err
		}
	}
	format.ApplyNames(channels)

	hdr := &format.Header{
		Format:            "WAV",
		Channels:          channels,
		NumTimeFrames:     frames,
		SamplingFrequency: float64(dec.SampleRate),
		AtomType:          format.Scalar,
	}
	hdr.SingleSession(0)

	data := format.NewMatrix(nch, frames)
	for tf := 0; tf < frames; tf++ {
		for c, ch := range channels {
			raw := float64(buf.Data[tf*nch+c])
			data.Set(c, tf, float32((raw-ch.Offset)*ch.Gain))
		}
	}
	return &format.Memory{Hdr: hdr, Data: data}, nil
}

// readComment rewinds rs and walks the chunks after the payload for an INFO comment.
func readComment(rs io.ReadSeeker, log *slog.Logger) string {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		log.Warn("Cannot rewind for metadata", "err", err)
		return ""
	}
	dec := wav.NewDecoder(rs)
	dec.ReadMetadata()
	if err := dec.Err(); err != nil && err != io.EOF {
		log.Warn("Ignoring unreadable metadata", "err", err)
		return ""
	}
	if dec.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(dec.Metadata.Comments)
}

// applyComment copies the calibration comment into channels. Unknown keys are ignored.
func applyComment(comment string, channels []format.Channel) error {
	for _, pair := range strings.Split(comment, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		fields := strings.Split(value, "|")
		switch strings.TrimSpace(key) {
		case "names", "units", "gains":
		default:
			continue
		}
		if len(fields) != len(channels) {
			return fmt.Errorf("%w: %s has %d fields for %d channels", ErrBadComment, key, len(fields), len(channels))
		}
		for c, field := range fields {
			switch strings.TrimSpace(key) {
			case "names":
				channels[c].Name = strings.TrimSpace(field)
			case "units":
				channels[c].Unit = strings.TrimSpace(field)
			case "gains":
				gain, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
				if err != nil || gain == 0 {
					return fmt.Errorf("%w: gain %q", ErrBadComment, field)
				}
				channels[c].Gain = gain
			}
		}
	}
	return nil
}

