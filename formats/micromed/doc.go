// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package micromed reads Micromed System 98 (.trc) recordings.
//
// The file starts with a 640-byte little-endian header (see Header) whose title holds
// "MICROMED". From offset 176 it carries area descriptors, each an 8-byte name, a uint32
// start offset and a uint32 length:
//
//	ORDER     code area, one uint16 electrode index per stored channel
//	LABCOD    electrode area, 128-byte records indexed by the code area
//	NOTE      notes, (uint32 sample, [40]byte text) records, a zero sample ends the list
//	TRIGGER   triggers, (uint32 sample, uint16 value) records, an all-ones sample ends the list
//
// An electrode record holds:
//
//	offset size
//	0      1    status, bit 0 set when the electrode was accepted
//	1      1    type
//	2      6    positive input label
//	8      6    negative input label
//	14     4    int32 logic minimum
//	18     4    int32 logic maximum
//	22     4    int32 logic ground
//	26     4    int32 physical minimum
//	30     4    int32 physical maximum
//	34     2    int16 unit: -1 nV, 0 uV, 1 mV, 2 V, 100 %, 101 bpm, 102 dimensionless
//
// Samples are unsigned 1, 2 or 4-byte values, multiplexed from DataStart. Channels are presented
// in ascending electrode index, not in stored order. A stored value v reads as
// (v - ground) * (physMax - physMin) / (logicMax - logicMin + 1) in the electrode unit.
//
// Header types below 4 predate the descriptor table layout used here and are only read after
// confirmation. Compressed payloads are not supported.
package micromed
