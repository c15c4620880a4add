// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package erpss

import (
	"errors"
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotERPSS      = fmt.Errorf("erpss: missing block magic: %w", format.ErrNotRecognized)
	ErrTooManyChans  = fmt.Errorf("erpss: more than %d channels: %w", MaxChannels, format.ErrUnsupported)
	ErrBadGeometry   = fmt.Errorf("erpss: inconsistent block header: %w", format.ErrCorruptHeader)
	ErrTruncated     = errors.New("erpss: compressed block ends early")
	ErrTooManyEvents = fmt.Errorf("erpss: more than %d events in a block: %w", MaxEvents, format.ErrOutOfRange)
)
