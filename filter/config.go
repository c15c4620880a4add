// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package filter implements the temporal filters and re-referencing applied to raw tracks.
//
// Linear temporal stages (baseline removal, high-pass, low-pass, notches) are combined into a
// single zero-phase FIR kernel. Because the kernel has a finite support of 2*Margin+1 time frames,
// filtering a window is exactly equivalent to filtering any larger window and cutting it, as long
// as Margin extra time frames are supplied on each side.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSamplingFrequency is returned when temporal filters are requested on a recording
	// with an unknown sampling frequency.
	ErrNoSamplingFrequency = errors.New("filter: temporal filtering needs a sampling frequency")
	// ErrInvalidCutoff indicates a cutoff outside (0, Nyquist).
	ErrInvalidCutoff = errors.New("filter: invalid cutoff frequency")
)

// Config is the ordered set of optional filter stages.
type Config struct {
	DC         bool      // Baseline removal, a high-pass at DCCutoff
	DCCutoff   float64   // Hz, DefaultDCCutoff when 0
	HighPass   float64   // Hz, 0 when off
	LowPass    float64   // Hz, 0 when off
	Notches    []float64 // Hz, each removed with its harmonics up to Nyquist when Harmonics is set
	Harmonics  bool
	Rectify    bool    // Absolute value
	Envelope   float64 // Sliding max-abs window in seconds, 0 when off
	Threshold  float64 // Values whose magnitude is below Threshold are zeroed, 0 when off
	NotchWidth float64 // Hz, DefaultNotchWidth when 0
}

const (
	DefaultDCCutoff   = 0.5
	DefaultNotchWidth = 2.0
)

// IsEmpty reports whether no stage is configured.
func (c Config) IsEmpty() bool {
	return !c.DC && c.HighPass == 0 && c.LowPass == 0 && len(c.Notches) == 0 &&
		!c.Rectify && c.Envelope == 0 && c.Threshold == 0
}

// HasTemporal reports whether a stage needs neighbouring time frames.
func (c Config) HasTemporal() bool {
	return c.DC || c.HighPass > 0 || c.LowPass > 0 || len(c.Notches) > 0 || c.Envelope > 0
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Notches = append([]float64(nil), c.Notches...)
	return c
}

// Validate checks the cutoffs against the sampling frequency.
func (c Config) Validate(sf float64) error {
	if !c.HasTemporal() {
		return nil
	}
	if sf <= 0 {
		return ErrNoSamplingFrequency
	}
	nyquist := sf / 2
	check := func(name string, f float64) error {
		if f < 0 || f >= nyquist {
			return fmt.Errorf("%w: %s %g Hz with Nyquist %g Hz", ErrInvalidCutoff, name, f, nyquist)
		}
		return nil
	}
	if err := check("high-pass", c.HighPass); err != nil {
		return err
	}
	if err := check("low-pass", c.LowPass); err != nil {
		return err
	}
	if c.HighPass > 0 && c.LowPass > 0 && c.HighPass >= c.LowPass {
		return fmt.Errorf("%w: high-pass %g Hz above low-pass %g Hz", ErrInvalidCutoff, c.HighPass, c.LowPass)
	}
	for _, n := range c.Notches {
		if n <= 0 {
			return fmt.Errorf("%w: notch %g Hz", ErrInvalidCutoff, n)
		}
		if err := check("notch", n); err != nil {
			return err
		}
	}
	if c.DC {
		if err := check("baseline", c.dcCutoff()); err != nil {
			return err
		}
	}
	return nil
}

// Margin is the number of extra time frames needed on each side of a window.
func (c Config) Margin(sf float64) int {
	ch, err := c.Build(sf)
	if err != nil {
		return 0
	}
	return ch.Margin()
}

func (c Config) dcCutoff() float64 {
	if c.DCCutoff > 0 {
		return c.DCCutoff
	}
	return DefaultDCCutoff
}

func (c Config) notchWidth() float64 {
	if c.NotchWidth > 0 {
		return c.NotchWidth
	}
	return DefaultNotchWidth
}

func (c Config) String() string {
	if c.IsEmpty() {
		return "none"
	}
	var parts []string
	if c.DC {
		parts = append(parts, fmt.Sprintf("baseline %gHz", c.dcCutoff()))
	}
	if c.HighPass > 0 {
		parts = append(parts, fmt.Sprintf("high-pass %gHz", c.HighPass))
	}
	if c.LowPass > 0 {
		parts = append(parts, fmt.Sprintf("low-pass %gHz", c.LowPass))
	}
	for _, n := range c.Notches {
		parts = append(parts, fmt.Sprintf("notch %gHz", n))
	}
	if c.Rectify {
		parts = append(parts, "rectify")
	}
	if c.Envelope > 0 {
		parts = append(parts, fmt.Sprintf("envelope %gs", c.Envelope))
	}
	if c.Threshold > 0 {
		parts = append(parts, fmt.Sprintf("threshold %g", c.Threshold))
	}
	return strings.Join(parts, ", ")
}
