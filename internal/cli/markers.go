// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cli

import (
	"fmt"

	"github.com/OpenPSG/tracks"
	"github.com/spf13/cobra"
)

var markersAbsolute bool

var markersCmd = &cobra.Command{
	Use:   "markers <file>",
	Short: "List the markers of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarkers,
}

func init() {
	rootCmd.AddCommand(markersCmd)

	markersCmd.Flags().BoolVar(&markersAbsolute, "absolute", false, "Show wall clock times")
}

func runMarkers(cmd *cobra.Command, args []string) error {
	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()
	printDocumentSummary(cmd, doc)

	if markersAbsolute {
		doc.SetTimeDisplay(tracks.Absolute)
	}
	out := cmd.OutOrStdout()
	for _, m := range doc.Markers() {
		fmt.Fprintf(out, "%8d %8d %-14s %-8s %5d %s\n", m.From, m.To, doc.FormatTime(m.From), m.Type, m.Code, m.Name)
	}
	return nil
}
