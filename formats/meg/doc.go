// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package meg reads MEG raw (.meg) recordings.
//
// All fields are big-endian. The 32-byte header:
//
//	offset size
//	0      8    "MEGRAW01"
//	8      2    version
//	10     2    number of channels
//	12     4    float32 sampling frequency
//	16     3    uint24 number of time frames
//	19     1    sample format: 1 int16, 2 int32, 3 float32
//	20     2    year
//	22     5    month, day, hour, minute, second
//	27     1    reserved
//	28     4    header size, the offset of the first sample
//
// is followed by one 32-byte entry per channel: a 16-byte name, a type byte (0 MEG, 1 reference,
// 2 EEG, 3 trigger, 4 other), 3 reserved bytes, an 8-byte unit and a float32 gain. Samples are
// multiplexed.
//
// Calibration factors live in a text file next to the recording, with the .cal extension, one
// "name factor" pair per line. A channel value is sample * gain * factor. Trigger channels
// carry raw integer codes and are never calibrated.
package meg
