// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package erpss reads and writes ERPSS raw (.raw) and compressed (.rdf) recordings.
//
// A file is a sequence of blocks, each a 512-byte little-endian header followed by its payload:
//
//	offset size
//	0      2    magic 0x55AA (int16 samples) or 0x55AC (nibble compressed)
//	2      2    number of channels, at most 64
//	4      2    time frames in the block
//	6      2    clock period in microseconds
//	8      4    block index
//	12     4    payload size in bytes
//	16     2    number of events in the block, at most 32
//	20     4    float32 calibration, microvolts per digital unit
//	32     128  events: (uint16 time frame within the block, uint16 code) pairs
//	160    256  channel names, four characters each
//
// Samples are multiplexed: every time frame stores one value per channel. In compressed blocks
// each value is a delta from the previous value of the same channel, the predictor starting at
// zero in every block so that blocks decode independently. Deltas are packed in nibbles, most
// significant first:
//
//	0xxx                       3-bit delta
//	10xx xxxx                  6-bit delta
//	110x xxxx xxxx             9-bit delta
//	1110 xxxx xxxx xxxx        12-bit delta
//	1111 xxxx xxxx xxxx xxxx   absolute 16-bit value
//
// The payload is padded to a whole byte. Event codes 0xFE00 and 0xFE01 mark the start and the
// end of the acquisition, and delimit sessions; every other code is a trigger.
package erpss
