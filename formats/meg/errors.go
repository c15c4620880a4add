// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package meg

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotMEG         = fmt.Errorf("meg: missing magic: %w", format.ErrNotRecognized)
	ErrBadGeometry    = fmt.Errorf("meg: invalid geometry: %w", format.ErrCorruptHeader)
	ErrSampleFormat   = fmt.Errorf("meg: sample format: %w", format.ErrUnsupported)
	ErrNoCalibration  = fmt.Errorf("meg: calibration file missing: %w", format.ErrMissingCalibration)
	ErrBadCalibration = fmt.Errorf("meg: invalid calibration file: %w", format.ErrMissingCalibration)
)
