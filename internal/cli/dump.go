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
	"encoding/csv"
	"strconv"

	"github.com/OpenPSG/tracks"
	"github.com/spf13/cobra"
)

var (
	dumpFrom     int
	dumpTo       int
	dumpDerived  bool
	dumpPositive bool
	dumpProc     processing
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print processed samples as CSV",
	Long: `Print the processed samples of a window of the current session as CSV,
one line per time frame.

Examples:
  tracks dump --from 0 --to 999 rec.sef
  tracks dump --ref average --highpass 1 --lowpass 40 --derived rec.vhdr`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().IntVar(&dumpFrom, "from", 0, "First time frame")
	dumpCmd.Flags().IntVar(&dumpTo, "to", -1, "Last time frame (default: end of session)")
	dumpCmd.Flags().BoolVar(&dumpDerived, "derived", false, "Append the GFP, dissimilarity and average tracks")
	dumpCmd.Flags().BoolVar(&dumpPositive, "positive", false, "Print magnitudes")
	dumpProc.register(dumpCmd.Flags())
}

func runDump(cmd *cobra.Command, args []string) error {
	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()
	printDocumentSummary(cmd, doc)

	if err := dumpProc.apply(doc); err != nil {
		return err
	}

	to := dumpTo
	if to < 0 {
		to = doc.TimeFrameCount() - 1
	}
	m, err := doc.GetTracks(tracks.TrackRequest{From: dumpFrom, To: to, Positive: dumpPositive, Derived: dumpDerived})
	if err != nil {
		return err
	}

	var names []string
	for i := 0; i < doc.ChannelCount(); i++ {
		if doc.AtomType().Components() == 1 || dumpPositive {
			names = append(names, doc.ChannelName(i))
			continue
		}
		for _, axis := range []string{"x", "y", "z"} {
			names = append(names, doc.ChannelName(i)+"."+axis)
		}
	}
	if dumpDerived {
		for k := 0; k < tracks.NumDerived; k++ {
			names = append(names, doc.TrackName(doc.ChannelCount()+k, dumpPositive))
		}
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(append([]string{"tf"}, names...)); err != nil {
		return err
	}
	record := make([]string, m.Rows+1)
	for tf := 0; tf < m.TimeFrames; tf++ {
		record[0] = strconv.Itoa(dumpFrom + tf)
		for r := 0; r < m.Rows; r++ {
			record[r+1] = strconv.FormatFloat(float64(m.At(r, tf)), 'g', 7, 32)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
