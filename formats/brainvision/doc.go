// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package brainvision reads and writes BrainVision recordings.
//
// A recording is three files. The .vhdr header is an INI-like text file:
//
//	Brain Vision Data Exchange Header File Version 1.0
//	[Common Infos]
//	DataFile=rec.eeg
//	MarkerFile=rec.vmrk
//	DataFormat=BINARY
//	DataOrientation=MULTIPLEXED
//	NumberOfChannels=2
//	SamplingInterval=2000
//	[Binary Infos]
//	BinaryFormat=INT_16
//	UseBigEndianOrder=NO
//	[Channel Infos]
//	Ch1=Fp1,,0.1,µV
//	Ch2=Fp2,,0.1,µV
//
// SamplingInterval is in microseconds. Channel lines hold the name (commas escaped as \1), the
// reference, the resolution in units per digital value and the unit. Samples are INT_16,
// INT_32, UINT_16 or IEEE_FLOAT_32, multiplexed (frame after frame) or vectorized (channel
// after channel), little-endian unless UseBigEndianOrder=YES.
//
// The .vmrk marker file lists one marker per line:
//
//	Mk2=Stimulus,S  1,500,1,0
//
// with the type, description, 1-based position, length in points, channel and, for
// "New Segment" markers, a yyyyMMddhhmmssuuuuuu timestamp. Every New Segment starts a session.
package brainvision
