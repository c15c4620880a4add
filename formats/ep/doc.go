// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package ep reads and writes ASCII evoked potential files.
//
// An .ep file holds one line of whitespace separated values per time frame, every line
// carrying the same number of channels. An .eph file starts with a line
// "<channels> <time frames> <sampling frequency>" followed by the same payload.
// Both are small averages, so the whole payload is loaded when the file is opened.
package ep
