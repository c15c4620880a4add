// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package sef

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotSEF      = fmt.Errorf("sef: missing SE01 magic: %w", format.ErrNotRecognized)
	ErrBadGeometry = fmt.Errorf("sef: invalid electrode or time frame count: %w", format.ErrCorruptHeader)
	ErrTruncated   = fmt.Errorf("sef: file shorter than its header announces: %w", format.ErrCorruptHeader)
	ErrNotScalar   = fmt.Errorf("sef: only scalar samples can be stored: %w", format.ErrUnsupported)
)
