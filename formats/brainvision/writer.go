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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// Export writes session 0 of src as a header file at path, with IEEE_FLOAT_32 multiplexed
// samples in a .eeg file and markers in a .vmrk file next to it.
func (Format) Export(path string, src format.Source, markers []format.Marker) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	dataPath, markerPath := base+".eeg", base+".vmrk"
	in := src.Header()
	rows := in.Rows()

	df, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", dataPath, err)
	}
	defer df.Close()
	bw := bufio.NewWriter(df)
	err = format.Walk(src, 0, func(m *format.Matrix, _ int) error {
		return format.WriteMultiplexedFloat32(bw, m, rows)
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := df.Close(); err != nil {
		return err
	}

	var hdr strings.Builder
	hdr.WriteString("Brain Vision Data Exchange Header File Version 1.0\n\n")
	hdr.WriteString("[Common Infos]\n")
	fmt.Fprintf(&hdr, "DataFile=%s\n", filepath.Base(dataPath))
	fmt.Fprintf(&hdr, "MarkerFile=%s\n", filepath.Base(markerPath))
	hdr.WriteString("DataFormat=BINARY\nDataOrientation=MULTIPLEXED\n")
	fmt.Fprintf(&hdr, "NumberOfChannels=%d\n", rows)
	interval := 0.0
	if in.SamplingFrequency > 0 {
		interval = 1e6 / in.SamplingFrequency
	}
	fmt.Fprintf(&hdr, "SamplingInterval=%s\n\n", strconv.FormatFloat(interval, 'g', -1, 64))
	hdr.WriteString("[Binary Infos]\nBinaryFormat=IEEE_FLOAT_32\n\n")
	hdr.WriteString("[Channel Infos]\n")
	for i := 0; i < rows; i++ {
		name, unit := "Ch"+strconv.Itoa(i+1), "uV"
		if i < len(in.Channels) {
			name = in.Channels[i].Name
			if in.Channels[i].Unit != "" {
				unit = in.Channels[i].Unit
			}
		}
		fmt.Fprintf(&hdr, "Ch%d=%s,,1,%s\n", i+1, escapeField(name), escapeField(unit))
	}
	if err := os.WriteFile(path, []byte(hdr.String()), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	var mrk strings.Builder
	mrk.WriteString("Brain Vision Data Exchange Marker File Version 1.0\n\n")
	mrk.WriteString("[Common Infos]\n")
	fmt.Fprintf(&mrk, "DataFile=%s\n\n", filepath.Base(dataPath))
	mrk.WriteString("[Marker Infos]\n")
	stamp := strings.Repeat("0", 20)
	if !in.StartTime.IsZero() {
		stamp = formatTimestamp(in.StartTime)
	}
	fmt.Fprintf(&mrk, "Mk1=%s,,1,1,0,%s\n", NewSegment, stamp)
	n := 2
	for _, m := range markers {
		if m.Type == format.Segment {
			continue
		}
		kind := "Comment"
		if m.Type == format.Trigger {
			kind = "Stimulus"
		}
		desc := m.Name
		if desc == "" {
			desc = strconv.Itoa(m.Code)
		}
		fmt.Fprintf(&mrk, "Mk%d=%s,%s,%d,%d,0\n", n, kind, escapeField(desc), m.From+1, max(m.Duration(), 1))
		n++
	}
	if err := os.WriteFile(markerPath, []byte(mrk.String()), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", markerPath, err)
	}
	return nil
}
