// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads and writes EDF, EDF+ and BDF recordings.
//
// The header is 256 ASCII bytes followed by 256 bytes per signal, stored field by field
// (16 bytes of labels for every signal, then 80 bytes of transducers, and so on). Data records
// follow the header; each one holds SamplesPerRecord samples of every signal in turn, as 16-bit
// (EDF) or 24-bit (BDF) little-endian two's complement integers.
//
// On top of plain sample access the package handles:
//   - EDF+ annotation signals, whose Time-stamped Annotation Lists become markers;
//   - EDF+D discontinuous files, where every gap between data records starts a new session;
//   - the BDF "Status" channel, whose low 8 or 16 bits carry trigger codes;
//   - padded files, whose last data record is filled up with zeros (EDF) or with a repeated
//     value (BDF) after the actual end of the recording;
//   - a missing or wrong data record count, recomputed from the file size.
package edf
