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
	"math"

	"github.com/OpenPSG/tracks/format"
)

// probeBaseline samples pairs of consecutive time frames over the first half of the current
// session and reports whether the signal is dominated by a constant offset. Either test is
// enough: sample to sample changes that are small relative to the values, or channel means
// far apart relative to the channel deviations.
func (d *Document) probeBaseline() bool {
	n := d.TimeFrameCount()
	if n < 4 || d.hdr.SamplingFrequency <= 0 || d.hdr.AtomType != format.Scalar {
		return false
	}
	valid := d.ValidChannels()
	var members []int
	for c, ok := range valid {
		if ok {
			members = append(members, c)
		}
	}
	if len(members) == 0 {
		return false
	}

	pairs := min(d.cfg.Probe.Pairs, n/2-1)
	span := n/2 - 1
	pair := format.NewMatrix(d.hdr.Rows(), 2)

	var relSum float64
	var relCount int
	sums := make([]float64, len(members))
	squares := make([]float64, len(members))
	samples := 0
	for i := 0; i < pairs; i++ {
		tf := i * span / max(1, pairs-1)
		if err := d.reader.ReadWindow(d.session, tf, tf+1, pair, 0); err != nil {
			d.log.Warn("Baseline probe aborted", "timeFrame", tf, "err", err)
			return false
		}
		for k, c := range members {
			a, b := float64(pair.At(c, 0)), float64(pair.At(c, 1))
			if a != 0 {
				relSum += math.Abs(b-a) / math.Abs(a)
				relCount++
			}
			sums[k] += a + b
			squares[k] += a*a + b*b
		}
		samples += 2
	}
	if samples == 0 {
		return false
	}

	if relCount > 0 && relSum/float64(relCount) < d.cfg.Probe.RelativeDiff {
		d.log.Debug("Baseline probe: small relative differences", "mean", relSum/float64(relCount))
		return true
	}

	means := make([]float64, len(members))
	deviation := 0.0
	for k := range members {
		means[k] = sums[k] / float64(samples)
		variance := squares[k]/float64(samples) - means[k]*means[k]
		deviation += math.Sqrt(max(0, variance))
	}
	deviation /= float64(len(members))
	spread := stddev(means)
	if deviation > 0 && spread/deviation > d.cfg.Probe.OffsetRatio {
		d.log.Debug("Baseline probe: channel means spread", "spread", spread, "deviation", deviation)
		return true
	}
	return false
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	sum := 0.0
	for _, x := range v {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(v)))
}
