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
	"io"
	"strings"
)

type entry struct {
	key   string
	value string
}

// document is a parsed header or marker file. Section names and keys are case-sensitive.
type document struct {
	signature string
	sections  map[string][]entry
}

func (d *document) get(section, key string) string {
	for _, e := range d.sections[section] {
		if e.key == key {
			return e.value
		}
	}
	return ""
}

func (d *document) entries(section string) []entry {
	return d.sections[section]
}

func parseDocument(r io.Reader) (*document, error) {
	d := &document{sections: map[string][]entry{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	section := ""
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			d.signature = strings.TrimPrefix(line, "\ufeff")
			first = false
			continue
		}
		switch {
		case line == "" || line[0] == ';':
		case line[0] == '[' && line[len(line)-1] == ']':
			section = strings.TrimSpace(line[1 : len(line)-1])
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			d.sections[section] = append(d.sections[section], entry{
				key:   strings.TrimSpace(key),
				value: strings.TrimSpace(value),
			})
		}
	}
	return d, scanner.Err()
}

// splitFields splits a comma separated value, restoring escaped commas.
func splitFields(value string) []string {
	fields := strings.Split(value, ",")
	for i := range fields {
		fields[i] = strings.ReplaceAll(fields[i], `\1`, ",")
	}
	return fields
}

func escapeField(s string) string {
	return strings.ReplaceAll(s, ",", `\1`)
}
