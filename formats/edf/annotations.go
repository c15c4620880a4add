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
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Annotation is one entry of a Time-stamped Annotation List.
type Annotation struct {
	Onset    float64 // Seconds from the start of the recording
	Duration float64 // Seconds, 0 when absent
	Text     string  // Empty for the timekeeping annotation of a data record
}

const (
	talOnsetEnd    = 0x15
	talTextEnd     = 0x14
	talEnd         = 0x00
	talMaxTextSize = 512
)

// parseTALs decodes the annotation bytes of one data record.
func parseTALs(b []byte) []Annotation {
	var out []Annotation
	for _, tal := range bytes.Split(b, []byte{talEnd}) {
		if len(tal) == 0 || (tal[0] != '+' && tal[0] != '-') {
			continue
		}
		parts := bytes.Split(tal, []byte{talTextEnd})
		timing := parts[0]

		var onset, duration float64
		var err error
		if i := bytes.IndexByte(timing, talOnsetEnd); i >= 0 {
			onset, err = strconv.ParseFloat(string(timing[:i]), 64)
			if err != nil {
				continue
			}
			duration, _ = strconv.ParseFloat(string(timing[i+1:]), 64)
		} else if onset, err = strconv.ParseFloat(string(timing), 64); err != nil {
			continue
		}

		texts := parts[1:]
		// A TAL ends with 0x14, leaving an empty trailing element.
		if n := len(texts); n > 0 && len(texts[n-1]) == 0 {
			texts = texts[:n-1]
		}
		if len(texts) == 0 {
			out = append(out, Annotation{Onset: onset, Duration: duration})
			continue
		}
		for _, text := range texts {
			out = append(out, Annotation{
				Onset:    onset,
				Duration: duration,
				Text:     strings.TrimSpace(string(text)),
			})
		}
	}
	return out
}

// formatTAL encodes one annotation as a TAL.
func formatTAL(a Annotation) []byte {
	var b bytes.Buffer
	b.WriteString(formatOnset(a.Onset))
	if a.Duration > 0 {
		b.WriteByte(talOnsetEnd)
		b.WriteString(strconv.FormatFloat(a.Duration, 'f', -1, 64))
	}
	b.WriteByte(talTextEnd)
	text := a.Text
	if len(text) > talMaxTextSize {
		text = text[:talMaxTextSize]
	}
	b.WriteString(text)
	b.WriteByte(talTextEnd)
	b.WriteByte(talEnd)
	return b.Bytes()
}

// formatTimekeeping encodes the mandatory first TAL of a data record.
func formatTimekeeping(onset float64) []byte {
	return []byte(fmt.Sprintf("%s%c%c%c", formatOnset(onset), talTextEnd, talTextEnd, talEnd))
}

func formatOnset(onset float64) string {
	s := strconv.FormatFloat(onset, 'f', -1, 64)
	if onset >= 0 {
		s = "+" + s
	}
	return s
}
