// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package deltamed reads and writes Deltamed Coherence recordings.
//
// A recording is three files sharing a base name. The .eeg file holds multiplexed
// little-endian int16 samples and nothing else. The .txt file is the only source of geometry
// and calibration, and a recording without it cannot be read:
//
//	Deltamed Coherence
//	NumChannels=2
//	SamplingRate=256
//	Date=2021-05-06 07:08:09
//	Channel1=Fp1,uV,0.1,0
//	Channel2=ECG,mV,0.001,-12
//
// Channel lines hold the name, the unit, the gain and the digital offset. The optional .mrk
// file is a linked list: the magic "MRK1", the uint32 offset of the first record, then records
// anywhere in the file:
//
//	offset size
//	0      4    next record offset, 0xFFFFFFFF after the last
//	4      4    previous record offset, 0xFFFFFFFF before the first
//	8      4    time frame
//	12     4    duration in time frames
//	16     2    code
//	18     1    name length
//	19     n    name
package deltamed
