// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package neuroscan reads Neuroscan continuous (.cnt) recordings.
//
// A file is a 900-byte little-endian SETUP record, one 75-byte electrode record per channel,
// the samples and an event table. The SETUP fields read are:
//
//	offset size
//	0      12   revision, "Version 3.0"
//	225    10   date, mm/dd/yy
//	235    12   time, hh:mm:ss
//	370    2    number of channels
//	376    2    sampling rate in Hz
//	864    4    number of samples
//	886    4    event table offset
//	894    4    channel offset: bytes per channel block
//
// and in each electrode record:
//
//	0      10   label
//	14     1    bad flag
//	47     2    int16 baseline
//	59     4    float32 sensitivity
//	71     4    float32 calibration
//
// A stored value v reads as (v - baseline) * sensitivity * calibration / 204.8 microvolts.
// Samples are int16, or int32 when the space before the event table says so. They are stored
// in blocks of ChannelOffset bytes per channel, channel after channel within a block; a channel
// offset of one sample or less means plainly multiplexed frames.
//
// The event table starts with a type byte (1, 2 or 3), the int32 size of the events in bytes
// and an int32 reserved offset. Type 1 events are 8 bytes:
//
//	0      2    stimulus code
//	2      1    keyboard code
//	3      1    keypad and accept: keypad in the low nibble, 0xC accepted or 0xD rejected in the
//	            high nibble
//	4      4    int32 position
//
// Types 2 and 3 append 11 bytes (type, code, latency, epoch, accept, accuracy) to each event.
// Types 1 and 2 store the position as a byte offset in the file, type 3 as a time frame.
package neuroscan
