// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package deltamed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/tracks/format"
)

// Signature is the first line of a header file.
const Signature = "Deltamed Coherence"

const dateLayout = "2006-01-02 15:04:05"

// Header is the content of a .txt header file.
type Header struct {
	SamplingRate float64
	Start        time.Time
	Channels     []format.Channel
}

// ParseHeader decodes a header file.
func ParseHeader(r io.Reader) (*Header, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(scanner.Text())), strings.ToLower(Signature)) {
		return nil, ErrNotDeltamed
	}

	h := &Header{}
	nch := -1
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		var err error
		switch {
		case key == "NumChannels":
			if nch, err = strconv.Atoi(value); err != nil || nch <= 0 {
				return nil, fmt.Errorf("%w: NumChannels=%s", ErrBadHeader, value)
			}
			h.Channels = make([]format.Channel, nch)
		case key == "SamplingRate":
			if h.SamplingRate, err = strconv.ParseFloat(value, 64); err != nil {
				return nil, fmt.Errorf("%w: SamplingRate=%s", ErrBadHeader, value)
			}
		case key == "Date":
			if h.Start, err = time.Parse(dateLayout, value); err != nil {
				return nil, fmt.Errorf("%w: Date=%s", ErrBadHeader, value)
			}
		case strings.HasPrefix(key, "Channel"):
			i, err := strconv.Atoi(key[len("Channel"):])
			if err != nil || i < 1 || i > nch {
				return nil, fmt.Errorf("%w: %s before NumChannels or out of range", ErrBadHeader, key)
			}
			if h.Channels[i-1], err = parseChannel(value); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrBadHeader, key, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	if nch <= 0 {
		return nil, fmt.Errorf("%w: NumChannels missing", ErrBadHeader)
	}
	for i, ch := range h.Channels {
		if ch.Gain == 0 {
			return nil, fmt.Errorf("%w: no calibration for channel %d", ErrBadHeader, i+1)
		}
	}
	format.ApplyNames(h.Channels)
	return h, nil
}

func parseChannel(value string) (format.Channel, error) {
	fields := strings.Split(value, ",")
	if len(fields) != 4 {
		return format.Channel{}, fmt.Errorf("%d fields", len(fields))
	}
	gain, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return format.Channel{}, err
	}
	offset, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return format.Channel{}, err
	}
	return format.Channel{
		Name:   strings.TrimSpace(fields[0]),
		Unit:   strings.TrimSpace(fields[1]),
		Gain:   gain,
		Offset: offset,
	}, nil
}

// WriteHeader encodes a header file.
func WriteHeader(w io.Writer, h *Header) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Signature)
	fmt.Fprintf(bw, "NumChannels=%d\n", len(h.Channels))
	fmt.Fprintf(bw, "SamplingRate=%s\n", strconv.FormatFloat(h.SamplingRate, 'g', -1, 64))
	if !h.Start.IsZero() {
		fmt.Fprintf(bw, "Date=%s\n", h.Start.Format(dateLayout))
	}
	for i, ch := range h.Channels {
		fmt.Fprintf(bw, "Channel%d=%s,%s,%s,%s\n", i+1, strings.ReplaceAll(ch.Name, ",", "_"), ch.Unit,
			strconv.FormatFloat(ch.Gain, 'g', -1, 64), strconv.FormatFloat(ch.Offset, 'g', -1, 64))
	}
	return bw.Flush()
}
