// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package brainvision

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotBrainVision = fmt.Errorf("brainvision: missing header signature: %w", format.ErrNotRecognized)
	ErrBadHeader      = fmt.Errorf("brainvision: invalid header: %w", format.ErrCorruptHeader)
	ErrBinaryFormat   = fmt.Errorf("brainvision: binary format: %w", format.ErrUnsupported)
	ErrDataFormat     = fmt.Errorf("brainvision: only BINARY data is read: %w", format.ErrUnsupported)
	ErrBadMarker      = fmt.Errorf("brainvision: invalid marker line: %w", format.ErrCorruptHeader)
)
