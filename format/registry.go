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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Registry maps file extensions to candidate formats, tried in registration order.
type Registry struct {
	formats []Format
	byExt   map[string][]Format
}

// NewRegistry creates a registry holding the given formats, in priority order.
func NewRegistry(formats ...Format) *Registry {
	r := &Registry{byExt: make(map[string][]Format)}
	for _, f := range formats {
		r.Register(f)
	}
	return r
}

// Register appends a format. Formats registered earlier win for shared extensions.
func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
	for _, ext := range f.Extensions() {
		ext = strings.ToLower(ext)
		r.byExt[ext] = append(r.byExt[ext], f)
	}
}

// Formats returns every registered format.
func (r *Registry) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

// Candidates returns the formats registered for the extension of path.
func (r *Registry) Candidates(path string) []Format {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// ByName returns the format with the given name.
func (r *Registry) ByName(name string) (Format, bool) {
	for _, f := range r.formats {
		if strings.EqualFold(f.Name(), name) {
			return f, true
		}
	}
	return nil, false
}

// Open opens path with the first candidate decoder that recognizes its content.
func (r *Registry) Open(path string, opts *Options) (Reader, Format, error) {
	if err := checkReadable(path); err != nil {
		return nil, nil, err
	}

	for _, f := range r.Candidates(path) {
		rd, err := f.Open(path, opts)
		if err == nil {
			return rd, f, nil
		}
		if errors.Is(err, ErrNotRecognized) {
			opts.Log().Debug("decoder declined file", "format", f.Name(), "path", path, "err", err)
			continue
		}
		return nil, f, err
	}

	return nil, nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// ReadHeader answers a header query with the first candidate decoder that recognizes path.
func (r *Registry) ReadHeader(path string) (*Header, Format, error) {
	if err := checkReadable(path); err != nil {
		return nil, nil, err
	}

	for _, f := range r.Candidates(path) {
		hdr, err := f.ReadHeader(path)
		if err == nil {
			return hdr, f, nil
		}
		if errors.Is(err, ErrNotRecognized) {
			continue
		}
		return nil, f, err
	}

	return nil, nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

func checkReadable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}
	return nil
}
