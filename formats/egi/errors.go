// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package egi

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotEGI      = fmt.Errorf("egi: unknown version field: %w", format.ErrNotRecognized)
	ErrSegmented   = fmt.Errorf("egi: segmented files: %w", format.ErrUnsupported)
	ErrBadGeometry = fmt.Errorf("egi: invalid channel or sample count: %w", format.ErrCorruptHeader)
)
