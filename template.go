// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

// Kind is the kind of content a recording holds.
type Kind int

const (
	// Resting is a continuous recording (spontaneous EEG, sleep, resting state).
	Resting Kind = iota
	// ERP is a short average time locked on an event.
	ERP
)

func (k Kind) String() string {
	if k == ERP {
		return "ERP"
	}
	return "resting"
}

// Kind tells an event related average from a continuous recording. Long sessions are always
// continuous; short ones are averages when their GFP peaks well above its mean and, when
// template.resting_max_magnitude is set, the mean GFP stays below it.
func (d *Document) Kind() (Kind, error) {
	if d.closed {
		return Resting, ErrClosed
	}
	tc := d.cfg.Template
	n := d.TimeFrameCount()
	if n > tc.ERPMaxFrames || n < 3 {
		return Resting, nil
	}

	m, err := d.GetTracks(TrackRequest{From: 0, To: n - 1, Derived: true})
	if err != nil {
		return Resting, err
	}
	gfp := m.Row(m.Rows - NumDerived + DerivedGFP)
	peak, mean := 0.0, 0.0
	for _, v := range gfp {
		peak = max(peak, float64(v))
		mean += float64(v)
	}
	mean /= float64(len(gfp))
	if mean == 0 {
		return Resting, nil
	}

	if peak/mean < tc.ERPMinSNR {
		return Resting, nil
	}
	if tc.RestingMaxMagnitude > 0 && mean > tc.RestingMaxMagnitude {
		return Resting, nil
	}
	return ERP, nil
}
