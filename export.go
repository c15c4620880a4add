// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"fmt"
	"path/filepath"

	"github.com/OpenPSG/tracks/format"
)

// Export writes the current session, as GetTracks returns it, to path. The writer is the first
// format of the registry handling the extension of path that can write files.
func (d *Document) Export(path string) error {
	if d.closed {
		return ErrClosed
	}
	var exporter format.Exporter
	for _, f := range d.opts.registry().Candidates(path) {
		if e, ok := f.(format.Exporter); ok {
			exporter = e
			break
		}
	}
	if exporter == nil {
		return fmt.Errorf("%w: %q", ErrNoExporter, filepath.Ext(path))
	}

	d.log.Info("Exporting", "to", path)
	if err := exporter.Export(path, &source{d: d, hdr: d.sessionHeader()}, d.Markers()); err != nil {
		return fmt.Errorf("error exporting %s: %w", path, err)
	}
	return nil
}

// sessionHeader describes the current session as a single session recording.
func (d *Document) sessionHeader() *format.Header {
	channels := make([]format.Channel, d.hdr.NumChannels())
	for i := range channels {
		channels[i], _ = d.Channel(i)
		channels[i].Gain, channels[i].Offset = 1, 0
	}
	hdr := &format.Header{
		Format:            d.hdr.Format,
		Channels:          channels,
		NumTimeFrames:     d.TimeFrameCount(),
		SamplingFrequency: d.hdr.SamplingFrequency,
		StartTime:         d.StartTime(),
		AtomType:          d.hdr.AtomType,
	}
	hdr.SingleSession(0)
	return hdr
}

// source adapts a document to format.Source.
type source struct {
	d   *Document
	hdr *format.Header
}

func (s *source) Header() *format.Header {
	return s.hdr
}

func (s *source) ReadWindow(session, tf1, tf2 int, dst *format.Matrix, offset int) error {
	if session != 0 {
		return fmt.Errorf("session %d: %w", session, format.ErrOutOfRange)
	}
	if err := dst.CheckWindow(s.hdr.Rows(), tf1, tf2, offset, s.hdr.NumTimeFrames); err != nil {
		return err
	}
	m, err := s.d.GetTracks(TrackRequest{From: tf1, To: tf2})
	if err != nil {
		return err
	}
	for r := 0; r < m.Rows; r++ {
		copy(dst.Row(r)[offset:], m.Row(r))
	}
	return nil
}
