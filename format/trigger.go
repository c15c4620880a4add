// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

import (
	"sort"
	"strconv"
)

// TriggerScanner turns the successive values of a trigger side channel into markers.
// Every change of the masked value closes the running marker and opens a new one when
// the new value is non-zero.
type TriggerScanner struct {
	mask    uint32
	name    func(code int) string
	tf      int
	code    uint32
	start   int
	markers []Marker
}

// NewTriggerScanner creates a scanner starting at absolute time frame first.
// A nil name function names markers after their decimal code.
func NewTriggerScanner(first int, mask uint32, name func(code int) string) *TriggerScanner {
	if name == nil {
		name = strconv.Itoa
	}
	return &TriggerScanner{
		mask: mask,
		name: name,
		tf:   first,
	}
}

// Push feeds the value of the next time frame.
func (s *TriggerScanner) Push(v uint32) {
	v &= s.mask
	if v != s.code {
		s.close(s.tf - 1)
		s.code = v
		s.start = s.tf
	}
	s.tf++
}

func (s *TriggerScanner) close(last int) {
	if s.code == 0 {
		return
	}
	s.markers = append(s.markers, Marker{
		From: s.start,
		To:   last,
		Code: int(s.code),
		Name: Truncate(s.name(int(s.code)), MaxMarkerName),
		Type: Trigger,
	})
}

// Finish closes a trigger still held at the last pushed time frame and returns all markers.
func (s *TriggerScanner) Finish() []Marker {
	s.close(s.tf - 1)
	s.code = 0
	return s.markers
}

// TriggerMask guesses the width of the codes written in a Status channel from its first
// values: when the low byte ever changes between consecutive samples while the high byte
// stays constant, triggers are 8-bit wide, otherwise 16-bit.
func TriggerMask(values []uint32) uint32 {
	for i := 1; i < len(values); i++ {
		lo0, lo1 := values[i-1]&0xFF, values[i]&0xFF
		hi0, hi1 := (values[i-1]>>8)&0xFF, (values[i]>>8)&0xFF
		if lo0 != lo1 && hi0 == hi1 {
			return 0xFF
		}
	}
	return 0xFFFF
}

// SortMarkers orders markers by position, then code.
func SortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		a, b := markers[i], markers[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Code < b.Code
	})
}
