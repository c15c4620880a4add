// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package filter

import (
	"fmt"
	"strings"

	"github.com/OpenPSG/tracks/format"
)

// Mode selects the baseline subtracted from every channel.
type Mode int

const (
	AsRecorded Mode = iota
	Average
	Tracks
)

func (m Mode) String() string {
	switch m {
	case AsRecorded:
		return "as recorded"
	case Average:
		return "average"
	case Tracks:
		return "tracks"
	default:
		return "unknown"
	}
}

// ParseMode parses "none", "average" or "tracks".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "asrecorded", "as-recorded", "raw":
		return AsRecorded, nil
	case "avg", "average":
		return Average, nil
	case "tracks", "channels":
		return Tracks, nil
	}
	return AsRecorded, fmt.Errorf("unknown reference %q", s)
}

// Reference is a reference mode with its channel set for Tracks.
type Reference struct {
	Mode   Mode
	Tracks []int // Channels averaged into the reference in Tracks mode
}

// IsTrivial reports whether applying the reference leaves data unchanged.
func (r Reference) IsTrivial() bool {
	return r.Mode == AsRecorded || (r.Mode == Tracks && len(r.Tracks) == 0)
}

// Apply re-references m in place. Every channel occupies comps consecutive rows; valid flags the
// channels entering the average reference, target the channels the reference is subtracted from.
func (r Reference) Apply(m *format.Matrix, comps int, valid, target []bool) error {
	if r.IsTrivial() {
		return nil
	}

	var members []int
	switch r.Mode {
	case Average:
		for c, ok := range valid {
			if ok {
				members = append(members, c)
			}
		}
	case Tracks:
		for _, c := range r.Tracks {
			if c < 0 || c >= len(target) {
				return fmt.Errorf("reference channel %d: %w", c, format.ErrOutOfRange)
			}
		}
		members = r.Tracks
	}
	if len(members) == 0 {
		return nil
	}

	inv := 1 / float64(len(members))
	for tf := 0; tf < m.TimeFrames; tf++ {
		for k := 0; k < comps; k++ {
			sum := 0.0
			for _, c := range members {
				sum += float64(m.At(c*comps+k, tf))
			}
			ref := sum * inv
			for c, ok := range target {
				if !ok {
					continue
				}
				row := c*comps + k
				m.Set(row, tf, float32(float64(m.At(row, tf))-ref))
			}
		}
	}
	return nil
}
