// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package deltamed

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotDeltamed   = fmt.Errorf("deltamed: missing header signature: %w", format.ErrNotRecognized)
	ErrNoHeaderFile  = fmt.Errorf("deltamed: header file missing: %w", format.ErrMissingCalibration)
	ErrBadHeader     = fmt.Errorf("deltamed: invalid header: %w", format.ErrCorruptHeader)
	ErrNotMarkerFile = fmt.Errorf("deltamed: missing marker magic: %w", format.ErrCorruptHeader)
	ErrBrokenMarkers = fmt.Errorf("deltamed: broken marker list: %w", format.ErrCorruptHeader)
)
