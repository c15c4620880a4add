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
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// MarkerFileMagic starts a companion text marker file.
const MarkerFileMagic = "TL02"

// MarkerFilePath returns the companion marker file of a recording ("rec.sef" -> "rec.sef.mrk").
func MarkerFilePath(path string) string {
	return path + ".mrk"
}

// ReadMarkerFile reads the companion marker file of a recording. A missing file yields no
// marker and no error.
func ReadMarkerFile(path string) ([]Marker, error) {
	f, err := os.Open(MarkerFilePath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error opening marker file: %w", err)
	}
	defer f.Close()
	return ParseMarkerFile(f)
}

// ParseMarkerFile parses lines of `from to code type "name"`, in time frames, after the magic
// line. Older files carry `from to "name"` only: their code comes from a numeric name or the
// order of first appearance and their type is Event.
func ParseMarkerFile(r io.Reader) ([]Marker, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != MarkerFileMagic {
		return nil, fmt.Errorf("marker file: missing %s magic: %w", MarkerFileMagic, ErrNotRecognized)
	}

	codes := map[string]int{}
	var markers []Marker
	for line := 2; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		head, name, quoted := text, "", false
		if i := strings.IndexByte(text, '"'); i >= 0 {
			head, name, quoted = text[:i], strings.TrimSuffix(text[i+1:], `"`), true
		}
		fields := strings.Fields(head)
		if len(fields) < 2 {
			return nil, fmt.Errorf("marker file line %d: %w", line, ErrCorruptHeader)
		}
		from, err1 := strconv.Atoi(fields[0])
		to, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || to < from {
			return nil, fmt.Errorf("marker file line %d: bad position: %w", line, ErrCorruptHeader)
		}

		m := Marker{From: from, To: to, Type: Event}
		switch {
		case quoted && len(fields) == 4:
			code, err := strconv.Atoi(fields[2])
			typ, ok := ParseMarkerType(fields[3])
			if err != nil || !ok {
				return nil, fmt.Errorf("marker file line %d: bad code or type: %w", line, ErrCorruptHeader)
			}
			m.Code, m.Type = code, typ
		case quoted && len(fields) == 2, !quoted:
			if !quoted {
				name = strings.Join(fields[2:], " ")
			}
			code, err := strconv.Atoi(name)
			if err != nil {
				var ok bool
				if code, ok = codes[name]; !ok {
					code = len(codes) + 1
					codes[name] = code
				}
			}
			m.Code = code
		default:
			return nil, fmt.Errorf("marker file line %d: %d columns: %w", line, len(fields), ErrCorruptHeader)
		}
		m.Name = Truncate(name, MaxMarkerName)
		markers = append(markers, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading marker file: %w", err)
	}

	SortMarkers(markers)
	return markers, nil
}

// WriteMarkerFile writes markers next to a recording. Nothing is written for an empty list.
func WriteMarkerFile(path string, markers []Marker) error {
	if len(markers) == 0 {
		return nil
	}
	f, err := os.Create(MarkerFilePath(path))
	if err != nil {
		return fmt.Errorf("error creating marker file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, MarkerFileMagic)
	for _, m := range markers {
		fmt.Fprintf(w, "%8d\t%8d\t%6d\t%s\t\"%s\"\n", m.From, m.To, m.Code, m.Type, m.Name)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing marker file: %w", err)
	}
	return f.Close()
}
