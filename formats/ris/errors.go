// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ris

import (
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotRIS      = fmt.Errorf("ris: missing RI01 magic: %w", format.ErrNotRecognized)
	ErrBadGeometry = fmt.Errorf("ris: invalid solution point or time frame count: %w", format.ErrCorruptHeader)
)
