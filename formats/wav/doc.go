// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package wav reads and writes multichannel PCM WAVE files.
//
// RIFF parsing is done by github.com/go-audio/wav. Integer PCM of 8, 16, 24 or 32 bits is
// accepted; every channel becomes one track and the payload is decoded once at open time.
//
// WAVE carries no calibration. Files written by this package store it in the ICMT comment of
// the INFO list chunk as semicolon separated key=value pairs:
//
//	names=Fp1|Fp2|Cz;units=uV|uV|uV;gains=0.0305|0.0305|0.0298
//
// Without that comment samples are reported in digital units and channels are named
// "ch1", "ch2", ...
package wav
