// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package neuroscan

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotCNT         = fmt.Errorf("neuroscan: missing revision string: %w", format.ErrNotRecognized)
	ErrBadGeometry    = fmt.Errorf("neuroscan: invalid geometry: %w", format.ErrCorruptHeader)
	ErrEventTableType = fmt.Errorf("neuroscan: event table type: %w", format.ErrUnsupported)
)
