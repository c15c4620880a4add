// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"log/slog"

	"github.com/OpenPSG/tracks/config"
	"github.com/OpenPSG/tracks/format"
	"github.com/OpenPSG/tracks/formats/brainvision"
	"github.com/OpenPSG/tracks/formats/deltamed"
	"github.com/OpenPSG/tracks/formats/edf"
	"github.com/OpenPSG/tracks/formats/egi"
	"github.com/OpenPSG/tracks/formats/ep"
	"github.com/OpenPSG/tracks/formats/erpss"
	"github.com/OpenPSG/tracks/formats/meg"
	"github.com/OpenPSG/tracks/formats/micromed"
	"github.com/OpenPSG/tracks/formats/neuroscan"
	"github.com/OpenPSG/tracks/formats/ris"
	"github.com/OpenPSG/tracks/formats/sef"
	"github.com/OpenPSG/tracks/formats/wav"
)

// Options configures how documents are opened. The zero value, or nil, uses the defaults.
type Options struct {
	// Config holds the heuristic thresholds. Defaults to config.Default().
	Config *config.Config
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Confirm is asked before opening a file in a degraded mode. A nil Confirm declines.
	Confirm func(question string) bool
	// Registry lists the decoders tried. Defaults to DefaultRegistry().
	Registry *format.Registry
}

func (o *Options) config() *config.Config {
	if o == nil || o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Options) registry() *format.Registry {
	if o == nil || o.Registry == nil {
		return DefaultRegistry()
	}
	return o.Registry
}

func (o *Options) formatOptions(log *slog.Logger) *format.Options {
	opts := &format.Options{Logger: log}
	if o != nil {
		opts.Confirm = o.Confirm
	}
	return opts
}

// DefaultRegistry returns a registry holding every built-in format. EGI is tried before ERPSS
// for .raw files.
func DefaultRegistry() *format.Registry {
	return format.NewRegistry(
		edf.Format{},
		brainvision.Format{},
		ep.Format{},
		sef.Format{},
		ris.Format{},
		egi.Format{},
		erpss.Format{},
		micromed.Format{},
		neuroscan.Format{},
		meg.Format{},
		deltamed.Format{},
		wav.Format{},
	)
}

// HeaderInfo answers a header query without loading sample data.
type HeaderInfo struct {
	Format            string
	Channels          int // Regular channels, auxiliary ones included
	Aux               int
	TimeFrames        int
	SamplingFrequency float64
	Names             []string
}

// QueryHeader reads only the header of path.
func QueryHeader(path string, opts *Options) (*HeaderInfo, error) {
	hdr, _, err := opts.registry().ReadHeader(path)
	if err != nil {
		return nil, err
	}
	return &HeaderInfo{
		Format:            hdr.Format,
		Channels:          hdr.NumChannels(),
		Aux:               hdr.NumAux(),
		TimeFrames:        hdr.NumTimeFrames,
		SamplingFrequency: hdr.SamplingFrequency,
		Names:             hdr.Names(),
	}, nil
}
