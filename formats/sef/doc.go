// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package sef reads and writes Cartool Simple EEG Float files.
//
// All fields are little-endian:
//
//	offset size
//	0      4    magic "SE01"
//	4      4    int32   number of electrodes
//	8      4    int32   number of auxiliary electrodes (the last ones)
//	12     4    int32   number of time frames
//	16     4    float32 sampling frequency
//	20     14   int16   year, month, day, hour, minute, second, millisecond
//	34     8*n  electrode names, NUL padded
//
// The samples follow as float32, time frame after time frame. Markers live in an optional
// companion "<file>.mrk" text file.
package sef
