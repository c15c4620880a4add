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
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CleanName converts a fixed-size vendor string field to a Go string: the field stops at the
// first NUL, padding and surrounding whitespace are removed, and bytes that are not valid UTF-8
// are read as Windows-1252, the code page of most acquisition stations.
func CleanName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	var s string
	if utf8.Valid(field) {
		s = string(field)
	} else if decoded, err := charmap.Windows1252.NewDecoder().Bytes(field); err == nil {
		s = string(decoded)
	} else {
		s = strings.ToValidUTF8(string(field), "?")
	}
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// DedupNames renames colliding names in place: the second "Fz" becomes "Fz_2", and so on.
// Empty names are replaced by their 1-based position.
func DedupNames(names []string) {
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		key := strings.ToLower(name)
		if n, ok := seen[key]; ok {
			for {
				n++
				candidate := name + "_" + strconv.Itoa(n)
				if _, taken := seen[strings.ToLower(candidate)]; !taken {
					seen[key] = n
					name = candidate
					key = strings.ToLower(candidate)
					break
				}
			}
		}
		seen[key] = max(seen[key], 1)
		names[i] = name
	}
}

var auxPrefixes = []string{
	"ecg", "ekg", "eog", "heog", "veog", "emg", "resp", "status", "trigger", "trig",
	"photic", "mkr", "event", "sao2", "spo2", "pulse", "pleth", "gsr", "temp", "dc",
}

// IsAuxName reports whether a channel label designates an auxiliary, non-EEG channel.
func IsAuxName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	for _, p := range auxPrefixes {
		if !strings.HasPrefix(n, p) {
			continue
		}
		rest := n[len(p):]
		if rest == "" {
			return true
		}
		// "dc01" is an auxiliary DC input, "dcz" is not a label we know.
		c := rest[0]
		if c >= '0' && c <= '9' || c == ' ' || c == '-' || c == '_' || c == '.' {
			return true
		}
		if p != "dc" && p != "temp" {
			return true
		}
	}
	return false
}

// ApplyNames cleans, de-duplicates and flags auxiliary channels from a raw name table.
func ApplyNames(channels []Channel) {
	names := make([]string, len(channels))
	for i := range channels {
		names[i] = strings.TrimSpace(channels[i].Name)
	}
	DedupNames(names)
	for i := range channels {
		channels[i].Name = names[i]
		if IsAuxName(names[i]) {
			channels[i].Aux = true
		}
		if channels[i].Bad {
			channels[i].Aux = false
		}
	}
}
