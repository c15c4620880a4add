// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package tracks exposes bioelectric recordings of every supported vendor format as signal
// documents.
//
// A Document hides which decoder produced the data. It gives windowed access to the samples of
// the current session in physical units, with optional temporal filtering, re-referencing,
// derived channels (GFP or RMS, dissimilarity, average) and region of interest averaging.
//
//	doc, err := tracks.Open("night.edf", nil)
//	if err != nil {
//		return err
//	}
//	defer doc.Close()
//
//	m, err := doc.GetTracks(tracks.TrackRequest{From: 0, To: 255, Derived: true})
//
// Documents are not safe for concurrent use. Table is an explicit, mutex guarded set of open
// documents for callers that need cross-document lookups.
package tracks
