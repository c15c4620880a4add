// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wav

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotWAV       = fmt.Errorf("wav: not a RIFF/WAVE file: %w", format.ErrNotRecognized)
	ErrNotPCM       = fmt.Errorf("wav: only integer PCM is handled: %w", format.ErrUnsupported)
	ErrBitDepth     = fmt.Errorf("wav: unsupported bit depth: %w", format.ErrUnsupported)
	ErrBadGeometry  = fmt.Errorf("wav: invalid channel count or sample rate: %w", format.ErrCorruptHeader)
	ErrBadComment   = fmt.Errorf("wav: calibration comment does not match the channels: %w", format.ErrCorruptHeader)
	ErrTooManyChans = fmt.Errorf("wav: too many channels for a WAVE header: %w", format.ErrUnsupported)
	ErrNoRate       = fmt.Errorf("wav: a sampling frequency is required: %w", format.ErrUnsupported)
)
