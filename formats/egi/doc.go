// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package egi reads EGI simple binary (.raw) recordings.
//
// The header is big-endian:
//
//	offset size
//	0      4    int32  version: 2 int16, 4 float32, 6 float64 samples (odd versions are segmented)
//	4      12   int16  year, month, day, hour, minute, second
//	16     4    int32  millisecond
//	20     2    int16  sampling rate
//	22     2    int16  number of channels
//	24     2    int16  board gain
//	26     2    int16  conversion bits, 0 when samples are already calibrated
//	28     2    int16  amplifier range in microvolts
//	30     4    int32  number of samples
//	34     2    int16  number of event channels
//	36     4*n  event codes, four characters each
//
// Every time frame then stores the channels followed by the event channels. Files written on
// little-endian hosts by some converters have every field swapped; the version field serves as
// the sentinel that reveals the byte order.
//
// The amplifier never transmits its reference electrode, which leaves an even electrode count
// (128, 256); a zero-valued VREF channel is appended in that case.
package egi
