// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cli

import (
	"github.com/OpenPSG/tracks"
	"github.com/OpenPSG/tracks/filter"
	"github.com/spf13/pflag"
)

// processing holds the filter and reference flags shared by several commands.
type processing struct {
	ref       string
	refTracks []string
	bad       []string
	raw       bool
	dc        bool
	highPass  float64
	lowPass   float64
	notches   []float64
	harmonics bool
}

func (p *processing) register(flags *pflag.FlagSet) {
	flags.StringVar(&p.ref, "ref", "", "Reference: none, average or tracks")
	flags.StringSliceVar(&p.refTracks, "ref-tracks", nil, "Channels of the tracks reference")
	flags.StringSliceVar(&p.bad, "bad", nil, "Channels to flag bad")
	flags.BoolVar(&p.raw, "raw", false, "Disable the default baseline removal")
	flags.BoolVar(&p.dc, "dc", false, "Remove the baseline")
	flags.Float64Var(&p.highPass, "highpass", 0, "High-pass cutoff in Hz")
	flags.Float64Var(&p.lowPass, "lowpass", 0, "Low-pass cutoff in Hz")
	flags.Float64SliceVar(&p.notches, "notch", nil, "Notch frequencies in Hz")
	flags.BoolVar(&p.harmonics, "harmonics", false, "Also remove the notch harmonics")
}

// apply configures doc. Without filter flags the default chosen at open time is kept.
func (p *processing) apply(doc *tracks.Document) error {
	if len(p.bad) > 0 {
		var bad []int
		for _, name := range p.bad {
			c, err := channelIndex(doc, name)
			if err != nil {
				return err
			}
			bad = append(bad, c)
		}
		if err := doc.SetBadChannels(bad); err != nil {
			return err
		}
	}

	if p.ref != "" || len(p.refTracks) > 0 {
		mode, err := filter.ParseMode(p.ref)
		if err != nil {
			return err
		}
		ref := filter.Reference{Mode: mode}
		if len(p.refTracks) > 0 {
			ref.Mode = filter.Tracks
			for _, name := range p.refTracks {
				c, err := channelIndex(doc, name)
				if err != nil {
					return err
				}
				ref.Tracks = append(ref.Tracks, c)
			}
		}
		if err := doc.SetReference(ref); err != nil {
			return err
		}
	}

	cfg := filter.Config{
		DC:        p.dc,
		HighPass:  p.highPass,
		LowPass:   p.lowPass,
		Notches:   p.notches,
		Harmonics: p.harmonics,
	}
	switch {
	case !cfg.IsEmpty():
		if err := doc.SetFilters(cfg); err != nil {
			return err
		}
		return doc.ActivateFilters(true)
	case p.raw:
		return doc.ActivateFilters(false)
	}
	return nil
}
