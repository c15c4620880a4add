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
	"time"

	"github.com/OpenPSG/tracks/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTableGhost(t *testing.T) {
	tbl := format.NewSessionTable(100, 8, 1000)
	tbl.Start(201, 200, time.Time{})
	tbl.Start(601, 600, time.Time{})

	sessions := tbl.Build(time.Time{})
	require.Len(t, sessions, 3)

	assert.True(t, sessions[0].Ghost)
	assert.Equal(t, 0, sessions[0].FirstTimeFrame)
	assert.Equal(t, 200, sessions[0].NumTimeFrames)
	assert.Equal(t, int64(100), sessions[0].DataOrigin)

	assert.Equal(t, 200, sessions[1].FirstTimeFrame)
	assert.Equal(t, 400, sessions[1].NumTimeFrames)
	assert.Equal(t, int64(100+200*8), sessions[1].DataOrigin)

	assert.Equal(t, 600, sessions[2].FirstTimeFrame)
	assert.Equal(t, 400, sessions[2].NumTimeFrames)
}

func TestSessionTableStartEndPairs(t *testing.T) {
	tbl := format.NewSessionTable(0, 2, 100)
	tbl.Start(1, 0, time.Time{})
	tbl.End(29)
	tbl.Start(41, 40, time.Time{})
	tbl.End(500)

	sessions := tbl.Build(time.Time{})
	require.Len(t, sessions, 2)
	assert.Equal(t, 30, sessions[0].NumTimeFrames)
	assert.Equal(t, 40, sessions[1].FirstTimeFrame)
	assert.Equal(t, 60, sessions[1].NumTimeFrames)
	assert.False(t, sessions[0].Ghost)
}

func TestSessionTableEmpty(t *testing.T) {
	start := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	sessions := format.NewSessionTable(64, 4, 10).Build(start)
	require.Len(t, sessions, 1)
	assert.Equal(t, 10, sessions[0].NumTimeFrames)
	assert.Equal(t, int64(64), sessions[0].DataOrigin)
	assert.Equal(t, start, sessions[0].StartTime)
}

func TestPreferredSession(t *testing.T) {
	assert.Equal(t, 0, format.PreferredSession([]format.Session{{NumTimeFrames: 10}}))
	assert.Equal(t, 1, format.PreferredSession([]format.Session{{NumTimeFrames: 10}, {NumTimeFrames: 100}}))
	assert.Equal(t, 0, format.PreferredSession([]format.Session{{NumTimeFrames: 50}, {NumTimeFrames: 100}}))
}
