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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTALs(t *testing.T) {
	b := []byte("+0\x14\x14\x00+1.5\x150.25\x14Stim\x14Resp\x14\x00-0.5\x14Early\x14\x00\x00\x00")
	got := parseTALs(b)
	require.Len(t, got, 4)

	assert.Equal(t, Annotation{Onset: 0}, got[0])
	assert.Equal(t, Annotation{Onset: 1.5, Duration: 0.25, Text: "Stim"}, got[1])
	assert.Equal(t, Annotation{Onset: 1.5, Duration: 0.25, Text: "Resp"}, got[2])
	assert.Equal(t, Annotation{Onset: -0.5, Text: "Early"}, got[3])
}

func TestFormatTALRoundTrip(t *testing.T) {
	var b []byte
	b = append(b, formatTimekeeping(3)...)
	b = append(b, formatTAL(Annotation{Onset: 3.2, Duration: 1, Text: "Lights off"})...)

	got := parseTALs(b)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Onset)
	assert.Empty(t, got[0].Text)
	assert.Equal(t, Annotation{Onset: 3.2, Duration: 1, Text: "Lights off"}, got[1])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1", formatDuration(1))
	assert.Equal(t, "0.5", formatDuration(0.5))
	assert.Equal(t, "0.333333", formatDuration(1.0/3))
	assert.Equal(t, "100", formatDuration(100))
}

func TestConvertPhysicalToDigitalClamps(t *testing.T) {
	assert.Equal(t, int32(32767), convertPhysicalToDigital(1000, -100, 100, -32768, 32767))
	assert.Equal(t, int32(-32768), convertPhysicalToDigital(-1000, -100, 100, -32768, 32767))
	assert.Equal(t, int32(2047), convertPhysicalToDigital(500, -500, 500, -2048, 2047))
}
