// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"errors"
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	// ErrClosed is returned by every operation on a closed document.
	ErrClosed = errors.New("tracks: document is closed")
	// ErrNoExporter is returned when no registered format writes the requested extension.
	ErrNoExporter = errors.New("tracks: no format can write this extension")
	// ErrSpectrumSize indicates a spectrum length that is not a power of two.
	ErrSpectrumSize = fmt.Errorf("tracks: spectrum size must be a power of two: %w", format.ErrOutOfRange)
)
