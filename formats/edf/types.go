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
	"strings"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
	// VersionBDF is the BioSemi version field, a 0xFF byte followed by "BIOSEMI".
	VersionBDF Version = "\xffBIOSEMI"
)

// AnnotationsLabel is the label of EDF+ annotation signals.
const (
	AnnotationsLabel    = "EDF Annotations"
	BDFAnnotationsLabel = "BDF Annotations"
	StatusLabel         = "Status"
)

// Header represents the EDF/EDF+/BDF file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // "EDF+C", "EDF+D", "BDF+C", "24BIT" or empty
	DataRecordDuration time.Duration // Duration of a single data record in seconds
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsBDF reports whether samples are 24-bit.
func (h *Header) IsBDF() bool {
	return h.Version == VersionBDF || strings.HasPrefix(h.Reserved, "24BIT") || strings.HasPrefix(h.Reserved, "BDF")
}

// IsDiscontinuous reports whether data records may be separated by gaps (EDF+D / BDF+D).
func (h *Header) IsDiscontinuous() bool {
	return strings.HasPrefix(h.Reserved, "EDF+D") || strings.HasPrefix(h.Reserved, "BDF+D")
}

// SampleBytes is the width of one stored sample.
func (h *Header) SampleBytes() int {
	if h.IsBDF() {
		return 3
	}
	return 2
}

// RecordSize is the number of bytes of one data record.
func (h *Header) RecordSize() int {
	size := 0
	for _, sig := range h.Signals {
		size += sig.SamplesPerRecord * h.SampleBytes()
	}
	return size
}

// IsAnnotation reports whether the signal carries EDF+ annotations instead of samples.
func (s *Signal) IsAnnotation() bool {
	return s.Label == AnnotationsLabel || s.Label == BDFAnnotationsLabel
}

// Gain is the physical value of one digital step.
func (s *Signal) Gain() float64 {
	if s.DigitalMax == s.DigitalMin {
		return 0 // Avoid division by zero
	}
	return (s.PhysicalMax - s.PhysicalMin) / float64(s.DigitalMax-s.DigitalMin)
}
