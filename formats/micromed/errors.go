// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package micromed

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotMicromed  = fmt.Errorf("micromed: missing title: %w", format.ErrNotRecognized)
	ErrCompressed   = fmt.Errorf("micromed: compressed payload: %w", format.ErrUnsupported)
	ErrOldHeader    = fmt.Errorf("micromed: old header type: %w", format.ErrDeclined)
	ErrBadGeometry  = fmt.Errorf("micromed: invalid geometry: %w", format.ErrCorruptHeader)
	ErrBadElectrode = fmt.Errorf("micromed: invalid electrode table: %w", format.ErrCorruptHeader)
)
