// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package format

import (
	"time"
)

// SessionTable accumulates sessions while a decoder walks the native segment markers of a file.
type SessionTable struct {
	base        int64 // Byte offset of the first packet
	recordSize  int64 // Bytes per packet
	totalFrames int   // Time frames up to the physical end of file
	rows        []tableRow
}

type tableRow struct {
	Session
	end int // Last absolute time frame, -1 while the row is open
}

// NewSessionTable creates a table for a payload starting at base, made of packets of
// recordSize bytes, and holding totalFrames time frames overall.
func NewSessionTable(base, recordSize int64, totalFrames int) *SessionTable {
	return &SessionTable{
		base:        base,
		recordSize:  recordSize,
		totalFrames: totalFrames,
	}
}

// Start opens a session whose first sample lives in packet (1-based) and is the absolute
// time frame tf. A still-open previous session ends right before tf.
func (t *SessionTable) Start(packet, tf int, ts time.Time) {
	if tf < 0 || tf >= t.totalFrames {
		return
	}
	if n := len(t.rows); n > 0 && t.rows[n-1].end < 0 {
		t.rows[n-1].end = tf - 1
	}
	t.rows = append(t.rows, tableRow{
		Session: Session{
			DataOrigin:     t.base + int64(packet-1)*t.recordSize,
			FirstTimeFrame: tf,
			StartTime:      ts,
		},
		end: -1,
	})
}

// End closes the current session at the absolute time frame tf (inclusive).
func (t *SessionTable) End(tf int) {
	n := len(t.rows)
	if n == 0 || t.rows[n-1].end >= 0 {
		return
	}
	if tf >= t.totalFrames {
		tf = t.totalFrames - 1
	}
	t.rows[n-1].end = tf
}

// SetCompression applies a compression mode to every session.
func (t *SessionTable) SetCompression(c Compression) {
	for i := range t.rows {
		t.rows[i].Compression = c
	}
}

// Build returns the session list. Open sessions run to the end of file, empty ones are dropped,
// and a ghost session covering [0, first start) is prepended when the first native segment does
// not start at time frame 0.
func (t *SessionTable) Build(start time.Time) []Session {
	var sessions []Session
	for i, row := range t.rows {
		end := row.end
		if end < 0 {
			end = t.totalFrames - 1
			if i+1 < len(t.rows) {
				end = t.rows[i+1].FirstTimeFrame - 1
			}
		}
		row.NumTimeFrames = end - row.FirstTimeFrame + 1
		if row.NumTimeFrames <= 0 {
			continue
		}
		sessions = append(sessions, row.Session)
	}

	if len(sessions) == 0 {
		return []Session{{
			DataOrigin:    t.base,
			NumTimeFrames: t.totalFrames,
			StartTime:     start,
		}}
	}

	if first := sessions[0].FirstTimeFrame; first > 0 {
		ghost := Session{
			DataOrigin:    t.base,
			NumTimeFrames: first,
			StartTime:     start,
			Compression:   sessions[0].Compression,
			Ghost:         true,
		}
		sessions = append([]Session{ghost}, sessions...)
	}

	return sessions
}

// PreferredSession picks the session to show first: session 0, unless it holds fewer than half
// the time frames of session 1 (a near-empty leading calibration segment).
func PreferredSession(sessions []Session) int {
	if len(sessions) > 1 && 2*sessions[0].NumTimeFrames < sessions[1].NumTimeFrames {
		return 1
	}
	return 0
}
