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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// NewSegment is the marker type that starts a session.
const NewSegment = "New Segment"

type segment struct {
	tf    int
	start time.Time
}

func readMarkerFile(path string, total int) ([]format.Marker, []segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return parseMarkers(f, total)
}

// parseMarkers decodes a marker file. Positions past total are dropped.
func parseMarkers(rd io.Reader, total int) ([]format.Marker, []segment, error) {
	d, err := parseDocument(rd)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading markers: %w", err)
	}

	var markers []format.Marker
	var segments []segment
	codes := map[string]int{}
	for _, e := range d.entries("Marker Infos") {
		fields := splitFields(e.value)
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("%w: %s", ErrBadMarker, e.key)
		}
		kind := strings.TrimSpace(fields[0])
		desc := format.CleanName([]byte(fields[1]))
		pos, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil || pos < 1 {
			return nil, nil, fmt.Errorf("%w: %s position", ErrBadMarker, e.key)
		}
		points := 1
		if len(fields) > 3 {
			if p, err := strconv.Atoi(strings.TrimSpace(fields[3])); err == nil && p > 1 {
				points = p
			}
		}
		from := pos - 1
		if from >= total {
			continue
		}

		if strings.EqualFold(kind, NewSegment) {
			var ts time.Time
			if len(fields) > 5 {
				ts = parseTimestamp(strings.TrimSpace(fields[5]))
			}
			segments = append(segments, segment{tf: from, start: ts})
			continue
		}

		name := desc
		if name == "" {
			name = kind
		}
		code, ok := trailingNumber(desc)
		if !ok {
			if code, ok = codes[name]; !ok {
				code = len(codes) + 1
				codes[name] = code
			}
		}
		typ := format.Event
		if strings.EqualFold(kind, "Stimulus") || strings.EqualFold(kind, "Response") {
			typ = format.Trigger
		}
		markers = append(markers, format.Marker{
			From: from,
			To:   min(from+points-1, total-1),
			Code: code,
			Name: format.Truncate(name, format.MaxMarkerName),
			Type: typ,
		})
	}
	format.SortMarkers(markers)
	return markers, segments, nil
}

// trailingNumber extracts the code of descriptions such as "S  1" or "R128".
func trailingNumber(s string) (int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[i:])
	return n, err == nil
}

// parseTimestamp decodes yyyyMMddhhmmss followed by microseconds. Zero timestamps are absent.
func parseTimestamp(s string) time.Time {
	if len(s) < 14 || strings.Trim(s, "0") == "" {
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", s[:14])
	if err != nil {
		return time.Time{}
	}
	if us, err := strconv.Atoi(s[14:]); err == nil && len(s) == 20 {
		t = t.Add(time.Duration(us) * time.Microsecond)
	}
	return t
}

func formatTimestamp(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/int(time.Microsecond))
}
