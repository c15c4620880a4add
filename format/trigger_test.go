// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format_test

import (
	"testing"

	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerScanner(t *testing.T) {
	s := format.NewTriggerScanner(10, 0xFF, nil)
	for _, v := range []uint32{0, 0, 5, 5, 0, 0x107, 7, 3} {
		s.Push(v)
	}

	markers := s.Finish()
	require.Len(t, markers, 3)

	assert.Equal(t, format.Marker{From: 12, To: 13, Code: 5, Name: "5", Type: format.Trigger}, markers[0])
	// 0x107 masked to 8 bits is the same code as the following 7.
	assert.Equal(t, 15, markers[1].From)
	assert.Equal(t, 16, markers[1].To)
	assert.Equal(t, 7, markers[1].Code)
	// Held until the end of the data: closed at the last time frame.
	assert.Equal(t, 17, markers[2].From)
	assert.Equal(t, 17, markers[2].To)
	assert.Equal(t, 3, markers[2].Code)
}

func TestTriggerMask(t *testing.T) {
	assert.Equal(t, uint32(0xFF), format.TriggerMask([]uint32{0x0300, 0x0300, 0x0301}))
	assert.Equal(t, uint32(0xFFFF), format.TriggerMask([]uint32{0x0000, 0x0101, 0x0101, 0x0202}))
	assert.Equal(t, uint32(0xFFFF), format.TriggerMask(nil))
}

func TestSortMarkers(t *testing.T) {
	m := []format.Marker{{From: 5, To: 5, Code: 2}, {From: 1, To: 3}, {From: 5, To: 5, Code: 1}}
	format.SortMarkers(m)
	assert.Equal(t, 1, m[0].From)
	assert.Equal(t, 1, m[1].Code)
	assert.Equal(t, 2, m[2].Code)
}
