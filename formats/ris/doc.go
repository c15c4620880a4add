// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package ris reads and writes inverse solution result files.
//
// A 17-byte little-endian header:
//
//	offset size
//	0      4    magic "RI01"
//	4      4    int32   number of solution points
//	8      4    int32   number of time frames
//	12     4    float32 sampling frequency
//	16     1    1 for scalar results, 0 for 3D dipoles
//
// is followed by float32 samples, time frame after time frame. Every solution point holds one
// value, or three (x, y, z) for dipoles; dipoles are exposed as three rows per solution point.
package ris
