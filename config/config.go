// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config holds the tunable defaults of the document engine. The heuristics it
// parameterizes are empirical, so every threshold can be overridden from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config groups the tunable defaults.
type Config struct {
	Probe    Probe    `toml:"probe"`
	Template Template `toml:"template"`
	Markers  Markers  `toml:"markers"`
	Limits   Limits   `toml:"limits"`
}

// Probe parameterizes the open-time baseline probe that decides whether baseline removal is on.
type Probe struct {
	Pairs        int     `toml:"pairs"`         // Time-frame pairs sampled
	RelativeDiff float64 `toml:"relative_diff"` // Mean |x[t+1]-x[t]| / |x[t]| below which the signal is offset-dominated
	OffsetRatio  float64 `toml:"offset_ratio"`  // Spread of channel means over channel deviation above which it is offset-dominated
	HighPass     float64 `toml:"highpass_hz"`   // Cutoff of the baseline removal turned on by the probe
}

// Template parameterizes the resting-state versus ERP detection.
type Template struct {
	ERPMinSNR           float64 `toml:"erp_min_snr"`           // Peak GFP over mean GFP
	ERPMaxFrames        int     `toml:"erp_max_frames"`        // Longer recordings are never ERPs
	RestingMaxMagnitude float64 `toml:"resting_max_magnitude"` // Mean GFP above which a recording is not an ERP, 0 disables
}

// Markers parameterizes marker normalization.
type Markers struct {
	MaxName int `toml:"max_name"`
}

// Limits parameterizes the statistical limits pass.
type Limits struct {
	MaxScanFrames int `toml:"max_scan_frames"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Probe: Probe{
			Pairs:        50,
			RelativeDiff: 0.02,
			OffsetRatio:  4,
			HighPass:     0.5,
		},
		Template: Template{
			ERPMinSNR:    2.5,
			ERPMaxFrames: 4096,
		},
		Markers: Markers{
			MaxName: 32,
		},
		Limits: Limits{
			MaxScanFrames: 2000,
		},
	}
}

// DefaultPath returns ~/.config/tracks/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tracks", "config.toml")
}

// Load reads path over the defaults. An empty path reads DefaultPath; a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the heuristics cannot work with.
func (c *Config) Validate() error {
	if c.Probe.Pairs < 2 {
		return fmt.Errorf("probe.pairs must be at least 2, got %d", c.Probe.Pairs)
	}
	if c.Probe.HighPass <= 0 {
		return fmt.Errorf("probe.highpass_hz must be positive, got %g", c.Probe.HighPass)
	}
	if c.Markers.MaxName <= 0 {
		return fmt.Errorf("markers.max_name must be positive, got %d", c.Markers.MaxName)
	}
	if c.Limits.MaxScanFrames <= 0 {
		return fmt.Errorf("limits.max_scan_frames must be positive, got %d", c.Limits.MaxScanFrames)
	}
	return nil
}
