// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

import "errors"

var (
	// ErrUnreadable indicates the file could not be opened or stat'ed.
	ErrUnreadable = errors.New("unreadable file")
	// ErrNotRecognized is returned by a decoder whose magic or signature does not match.
	ErrNotRecognized = errors.New("format not recognized")
	// ErrUnknownFormat is returned when no registered decoder accepts a file.
	ErrUnknownFormat = errors.New("unknown file type")
	// ErrCorruptHeader indicates a header that contradicts itself or the file size.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrUnsupported indicates a recognized format in a sub-mode that is not handled.
	ErrUnsupported = errors.New("unsupported variant")
	// ErrMissingCalibration indicates absent gain/zero information.
	ErrMissingCalibration = errors.New("missing calibration")
	// ErrDeclined is returned when the user refuses an override.
	ErrDeclined = errors.New("declined by user")
	// ErrOutOfRange indicates an invalid time frame, channel or session index.
	ErrOutOfRange = errors.New("out of range")
)
