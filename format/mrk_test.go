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
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.sef")

	none, err := format.ReadMarkerFile(path)
	require.NoError(t, err)
	assert.Empty(t, none)

	in := []format.Marker{
		{From: 40, To: 40, Code: 7, Name: "7", Type: format.Event},
		{From: 10, To: 19, Code: 1, Name: "eyes closed", Type: format.Segment},
		{From: 25, To: 26, Code: 255, Name: "stim", Type: format.Trigger},
	}
	require.NoError(t, format.WriteMarkerFile(path, in))

	out, err := format.ReadMarkerFile(path)
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{in[1], in[2], in[0]}, out)
}

func TestParseMarkerFile(t *testing.T) {
	_, err := format.ParseMarkerFile(strings.NewReader("TL01\n"))
	require.ErrorIs(t, err, format.ErrNotRecognized)

	_, err = format.ParseMarkerFile(strings.NewReader("TL02\n5 3 \"x\"\n"))
	require.ErrorIs(t, err, format.ErrCorruptHeader)

	markers, err := format.ParseMarkerFile(strings.NewReader("TL02\n\n 3 3 Stim A\n"))
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "Stim A", markers[0].Name)
	assert.Equal(t, 1, markers[0].Code)

	markers, err = format.ParseMarkerFile(strings.NewReader("TL02\n8 8 \"12\"\n2 4 \"blink\"\n1 1 3 trigger \"T3\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []format.Marker{
		{From: 1, To: 1, Code: 3, Name: "T3", Type: format.Trigger},
		{From: 2, To: 4, Code: 1, Name: "blink", Type: format.Event},
		{From: 8, To: 8, Code: 12, Name: "12", Type: format.Event},
	}, markers)

	_, err = format.ParseMarkerFile(strings.NewReader("TL02\n1 1 3 bogus \"x\"\n"))
	require.ErrorIs(t, err, format.ErrCorruptHeader)
}
