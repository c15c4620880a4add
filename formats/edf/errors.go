// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"errors"
	"fmt"

	"github.com/OpenPSG/tracks/format"
)

var (
	ErrNotEDF          = fmt.Errorf("edf: not an EDF or BDF file: %w", format.ErrNotRecognized)
	ErrMixedRates      = fmt.Errorf("edf: signals with different sampling rates: %w", format.ErrUnsupported)
	ErrNoDataSignals   = fmt.Errorf("edf: no data signal: %w", format.ErrUnsupported)
	ErrRecordTooLarge  = errors.New("edf: data record too large")
	ErrSignalCount     = errors.New("edf: wrong number of signals")
	ErrCorruptedHeader = fmt.Errorf("edf: %w", format.ErrCorruptHeader)
)
