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
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ParseHeader parses an EDF/EDF+/BDF header.
func ParseHeader(r io.Reader) (*Header, error) {
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotEDF, err)
	}

	// Fixed-width ASCII fields of the EDF/EDF+ header
	hdr := &Header{}
	switch {
	case b[0] == 0xFF && string(b[1:8]) == "BIOSEMI":
		hdr.Version = VersionBDF
	case strings.TrimSpace(string(b[0:8])) == string(Version0):
		hdr.Version = Version0
	default:
		return nil, ErrNotEDF
	}
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	// Parse start date and time
	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing start date: %w", ErrCorruptedHeader, err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing start time: %w", ErrCorruptedHeader, err)
	}
	year := startDate.Year()
	// EDF clipping date: years 85-99 are 1985-1999, 00-84 are 2000-2084.
	if year%100 >= 85 {
		year = 1900 + year%100
	} else {
		year = 2000 + year%100
	}
	hdr.StartTime = time.Date(year, startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	headerBytes, err := strconv.Atoi(strings.TrimSpace(string(b[184:192])))
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing header bytes: %w", ErrCorruptedHeader, err)
	}
	hdr.HeaderBytes = headerBytes
	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	numDataRecords, err := strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil {
		// Recomputed from the file size by the caller.
		numDataRecords = -1
	}
	hdr.DataRecords = numDataRecords

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(b[244:252])), 64)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("%w: error parsing data record duration %q", ErrCorruptedHeader, b[244:252])
	}
	hdr.DataRecordDuration = time.Duration(seconds * float64(time.Second))

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil || signalCount <= 0 {
		return nil, fmt.Errorf("%w: error parsing signal count %q", ErrCorruptedHeader, b[252:256])
	}
	hdr.SignalCount = signalCount
	if headerBytes != 256*(signalCount+1) {
		return nil, fmt.Errorf("%w: %d header bytes for %d signals", ErrCorruptedHeader, headerBytes, signalCount)
	}

	// Signal headers are stored field by field.
	hdr.Signals = make([]Signal, signalCount)
	fields := []struct {
		width int
		set   func(s *Signal, v string)
	}{
		{16, func(s *Signal, v string) { s.Label = v }},
		{80, func(s *Signal, v string) { s.TransducerType = v }},
		{8, func(s *Signal, v string) { s.PhysicalDimension = v }},
		{8, func(s *Signal, v string) { s.PhysicalMin = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.PhysicalMax = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.DigitalMin = parseInt(v) }},
		{8, func(s *Signal, v string) { s.DigitalMax = parseInt(v) }},
		{80, func(s *Signal, v string) { s.Prefiltering = v }},
		{8, func(s *Signal, v string) { s.SamplesPerRecord = parseInt(v) }},
		{32, func(s *Signal, v string) { s.Reserved = v }},
	}

	for _, field := range fields {
		b := make([]byte, field.width)
		for i := 0; i < signalCount; i++ {
			if _, err := io.ReadFull(reader, b); err != nil {
				return nil, fmt.Errorf("%w: error reading signal headers: %w", ErrCorruptedHeader, err)
			}
			field.set(&hdr.Signals[i], strings.TrimSpace(string(b)))
		}
	}

	for i, sig := range hdr.Signals {
		if sig.SamplesPerRecord <= 0 {
			return nil, fmt.Errorf("%w: signal %d has %d samples per record", ErrCorruptedHeader, i, sig.SamplesPerRecord)
		}
	}

	return hdr, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
