// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package filter

import "math"

// Kernel is a symmetric FIR kernel of length 2*Half+1.
type Kernel struct {
	Half   int
	Coeffs []float64
}

func identity() Kernel {
	return Kernel{Coeffs: []float64{1}}
}

// halfLength returns the half length giving a Hamming-windowed sinc a transition band of bw Hz.
func halfLength(bw, sf float64) int {
	h := int(math.Ceil(1.65 * sf / bw))
	return min(max(h, 1), int(math.Ceil(5*sf)))
}

// lowPass designs a windowed-sinc low-pass at fc Hz with unity gain at DC.
func lowPass(fc, sf float64, half int) Kernel {
	k := Kernel{Half: half, Coeffs: make([]float64, 2*half+1)}
	wc := 2 * fc / sf
	sum := 0.0
	for i := range k.Coeffs {
		n := float64(i - half)
		v := wc
		if n != 0 {
			v = math.Sin(math.Pi*wc*n) / (math.Pi * n)
		}
		w := 0.54 + 0.46*math.Cos(math.Pi*n/float64(half+1))
		k.Coeffs[i] = v * w
		sum += k.Coeffs[i]
	}
	for i := range k.Coeffs {
		k.Coeffs[i] /= sum
	}
	return k
}

// complement returns delta - k.
func complement(k Kernel) Kernel {
	out := Kernel{Half: k.Half, Coeffs: make([]float64, len(k.Coeffs))}
	for i, c := range k.Coeffs {
		out.Coeffs[i] = -c
	}
	out.Coeffs[k.Half] += 1
	return out
}

func highPass(fc, sf float64) Kernel {
	return complement(lowPass(fc, sf, halfLength(max(fc, 0.2), sf)))
}

func lowPassStage(fc, sf float64) Kernel {
	return lowPass(fc, sf, halfLength(max(0.2*fc, 1), sf))
}

// bandStop removes [f-width/2, f+width/2] around every centre frequency.
func bandStop(centers []float64, width, sf float64) Kernel {
	half := halfLength(width, sf)
	pass := Kernel{Half: half, Coeffs: make([]float64, 2*half+1)}
	for _, f := range centers {
		lo, hi := f-width/2, f+width/2
		upper := lowPass(min(hi, sf/2*0.999), sf, half)
		for i := range pass.Coeffs {
			pass.Coeffs[i] += upper.Coeffs[i]
		}
		if lo > 0 {
			lower := lowPass(lo, sf, half)
			for i := range pass.Coeffs {
				pass.Coeffs[i] -= lower.Coeffs[i]
			}
		}
	}
	return complement(pass)
}

// convolve combines two kernels into one applying both.
func convolve(a, b Kernel) Kernel {
	out := Kernel{Half: a.Half + b.Half, Coeffs: make([]float64, len(a.Coeffs)+len(b.Coeffs)-1)}
	for i, x := range a.Coeffs {
		if x == 0 {
			continue
		}
		for j, y := range b.Coeffs {
			out.Coeffs[i+j] += x * y
		}
	}
	return out
}

// mirror maps an index outside [0, n) back into the buffer by reflection about its edges.
// It returns -1 when the buffer is too short to reflect.
func mirror(j, n int) int {
	if j < 0 {
		j = -j
	}
	if j >= n {
		j = 2*(n-1) - j
	}
	if j < 0 || j >= n {
		return -1
	}
	return j
}

// apply convolves row with the kernel in place, using scratch (len >= len(row)) as a copy.
func (k Kernel) apply(row []float32, scratch []float32) {
	n := len(row)
	copy(scratch, row)
	src := scratch[:n]
	for t := 0; t < n; t++ {
		acc := 0.0
		base := t - k.Half
		if base >= 0 && base+len(k.Coeffs) <= n {
			for i, c := range k.Coeffs {
				acc += c * float64(src[base+i])
			}
		} else {
			for i, c := range k.Coeffs {
				if j := mirror(base+i, n); j >= 0 {
					acc += c * float64(src[j])
				}
			}
		}
		row[t] = float32(acc)
	}
}
