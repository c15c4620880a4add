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

// AtomType describes what a single sample of a channel represents.
type AtomType int

const (
	// Scalar samples are signed values (EEG potentials, scalar inverse results).
	Scalar AtomType = iota
	// Vector samples are 3D dipoles, stored as three consecutive rows per channel.
	Vector
	// Positive samples are magnitudes (rectified or norm of a vector).
	Positive
)

func (a AtomType) String() string {
	switch a {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Positive:
		return "positive"
	default:
		return "unknown"
	}
}

// Components is the number of stored rows per channel for the atom type.
func (a AtomType) Components() int {
	if a == Vector {
		return 3
	}
	return 1
}

// Header describes an opened (or queried) recording independently of its vendor format.
type Header struct {
	Format            string    // Name of the decoder that produced the header
	Channels          []Channel // Regular channels, auxiliary ones included
	NumTimeFrames     int       // Time frames of the whole file (all sessions)
	SamplingFrequency float64   // Hz, 0 when unknown
	StartTime         time.Time // Absolute start of the recording, zero when unknown
	AtomType          AtomType  // Type of the stored samples
	Sessions          []Session // At least one session
}

// NumChannels returns the number of regular channels.
func (h *Header) NumChannels() int {
	return len(h.Channels)
}

// NumAux returns the number of channels flagged as auxiliary.
func (h *Header) NumAux() int {
	n := 0
	for _, ch := range h.Channels {
		if ch.Aux {
			n++
		}
	}
	return n
}

// Names returns the channel name table.
func (h *Header) Names() []string {
	names := make([]string, len(h.Channels))
	for i, ch := range h.Channels {
		names[i] = ch.Name
	}
	return names
}

// Rows is the number of matrix rows a raw read fills.
func (h *Header) Rows() int {
	return len(h.Channels) * h.AtomType.Components()
}

// SingleSession sets a single session spanning the whole file.
func (h *Header) SingleSession(origin int64) {
	h.Sessions = []Session{{
		DataOrigin:    origin,
		NumTimeFrames: h.NumTimeFrames,
		StartTime:     h.StartTime,
	}}
}

// Channel describes one stored channel.
type Channel struct {
	Name   string  // Cleaned, de-duplicated label
	Unit   string  // Physical dimension (e.g. uV)
	Gain   float64 // Physical units per digital unit
	Offset float64 // Digital value subtracted before applying Gain
	Aux    bool    // Auxiliary (non-EEG) channel
	Bad    bool    // Flagged bad by the recording system
}

// Compression identifies how a session payload is stored.
type Compression int

const (
	Uncompressed Compression = iota
	NibbleDelta
)

// Session is a contiguous recording segment within one physical file.
type Session struct {
	DataOrigin     int64       // Byte offset of the first sample of the session
	FirstTimeFrame int         // Absolute time frame of the first sample
	NumTimeFrames  int         // Time frames in the session
	StartTime      time.Time   // Timestamp of the first sample, zero when unknown
	Compression    Compression // Payload encoding
	Ghost          bool        // Synthesized leading segment without a native marker
}

// LastTimeFrame returns the absolute index of the last time frame of the session.
func (s Session) LastTimeFrame() int {
	return s.FirstTimeFrame + s.NumTimeFrames - 1
}

// MarkerType classifies markers.
type MarkerType int

const (
	Trigger MarkerType = iota
	Event
	Segment
)

func (t MarkerType) String() string {
	switch t {
	case Trigger:
		return "trigger"
	case Event:
		return "event"
	case Segment:
		return "segment"
	default:
		return "unknown"
	}
}

// ParseMarkerType is the inverse of MarkerType.String.
func ParseMarkerType(s string) (MarkerType, bool) {
	switch s {
	case "trigger":
		return Trigger, true
	case "event":
		return Event, true
	case "segment":
		return Segment, true
	}
	return Event, false
}

// MaxMarkerName bounds marker display names.
const MaxMarkerName = 32

// Marker is a point or interval annotation, in time frames.
type Marker struct {
	From int
	To   int
	Code int
	Name string
	Type MarkerType
}

// Duration is the number of time frames covered by the marker.
func (m Marker) Duration() int {
	return m.To - m.From + 1
}
