// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ep

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotEP         = fmt.Errorf("ep: not an ASCII sample file: %w", format.ErrNotRecognized)
	ErrRaggedLine    = fmt.Errorf("ep: line with a different number of values: %w", format.ErrCorruptHeader)
	ErrBadEPHHeader  = fmt.Errorf("ep: invalid eph header line: %w", format.ErrCorruptHeader)
	ErrFramesMissing = fmt.Errorf("ep: fewer time frames than announced: %w", format.ErrCorruptHeader)
)
