// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package format defines the vendor-neutral contract shared by every recording decoder:
// headers, sessions, markers, the sample matrix and the decoder registry.
package format

import (
	"log/slog"
)

// Format is one vendor file format.
type Format interface {
	// Name of the format (e.g. "EDF").
	Name() string
	// Extensions handled, lower case with the leading dot.
	Extensions() []string
	// ReadHeader reads only what is needed to describe the recording.
	ReadHeader(path string) (*Header, error)
	// Open opens the recording for random access.
	Open(path string, opts *Options) (Reader, error)
}

// Reader gives random access to the samples and markers of an opened recording.
type Reader interface {
	// Header of the recording. The returned value must not be modified.
	Header() *Header
	// ReadWindow decodes time frames [tf1, tf2] of a session (relative to the session start)
	// into columns offset.. of dst, in physical units. Every one of Header().Rows() rows is filled.
	ReadWindow(session, tf1, tf2 int, dst *Matrix, offset int) error
	// Markers extracts the native markers of the whole file, in absolute time frames.
	Markers() ([]Marker, error)
	// Close releases the underlying file.
	Close() error
}

// Options carries the collaborators a decoder may need while opening a file.
type Options struct {
	// Logger receives warnings about recovered inconsistencies. Defaults to slog.Default().
	Logger *slog.Logger
	// Confirm asks the user whether to proceed in a degraded mode. A nil Confirm declines.
	Confirm func(question string) bool
}

// Log returns the configured logger.
func (o *Options) Log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Ask forwards a question to Confirm.
func (o *Options) Ask(question string) bool {
	if o == nil || o.Confirm == nil {
		return false
	}
	return o.Confirm(question)
}
