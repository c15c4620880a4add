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
	"os"
	"strings"
	"time"

	"github.com/OpenPSG/tracks"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Describe a recording",
	Long: `Print the format, channels, sessions and statistics of a recording.

Examples:
  tracks info night.edf
  tracks info --session 1 run.vhdr`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	doc, err := openDocument(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:      %s\n", path)
	if fi, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Size:      %s\n", humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Fprintf(out, "Format:    %s (%s atoms)\n", doc.Format(), doc.AtomType())

	sf := doc.SamplingFrequency()
	if sf > 0 {
		fmt.Fprintf(out, "Rate:      %s\n", humanize.SIWithDigits(sf, 3, "Hz"))
	} else {
		fmt.Fprintln(out, "Rate:      unknown")
	}
	fmt.Fprintf(out, "Frames:    %s", humanize.Comma(int64(doc.TimeFrameCount())))
	if sf > 0 {
		d := time.Duration(float64(doc.TimeFrameCount()) / sf * float64(time.Second))
		fmt.Fprintf(out, " (%s)", d.Round(time.Millisecond))
	}
	fmt.Fprintln(out)
	if start := doc.StartTime(); !start.IsZero() {
		fmt.Fprintf(out, "Start:     %s (%s)\n", start.Format(time.DateTime), humanize.Time(start))
	}

	fmt.Fprintf(out, "Sessions:  %d\n", doc.SessionCount())
	for i := 0; i < doc.SessionCount(); i++ {
		s, _ := doc.Session(i)
		current := " "
		if i == doc.CurrentSession() {
			current = "*"
		}
		ghost := ""
		if s.Ghost {
			ghost = " (leading, unmarked)"
		}
		fmt.Fprintf(out, "  %s %d: first %s, %s time frames%s\n", current, i,
			humanize.Comma(int64(s.FirstTimeFrame)), humanize.Comma(int64(s.NumTimeFrames)), ghost)
	}

	fmt.Fprintf(out, "Channels:  %d (%d auxiliary, %d bad)\n", doc.ChannelCount(), len(doc.AuxChannels()), len(doc.BadChannels()))
	for i := 0; i < doc.ChannelCount(); i++ {
		ch, _ := doc.Channel(i)
		var flags []string
		if ch.Aux {
			flags = append(flags, "aux")
		}
		if ch.Bad {
			flags = append(flags, "bad")
		}
		fmt.Fprintf(out, "  %3d %-12s %-6s %s\n", i, ch.Name, ch.Unit, strings.Join(flags, ","))
	}

	fmt.Fprintf(out, "Markers:   %d\n", len(doc.Markers()))
	fmt.Fprintf(out, "Filters:   %s", doc.Filters())
	if !doc.FiltersActive() {
		fmt.Fprint(out, " (inactive)")
	}
	fmt.Fprintln(out)

	l := doc.Limits()
	fmt.Fprintf(out, "Limits:    [%.4g, %.4g], max GFP %.4g over %s time frames\n",
		l.Min, l.Max, l.MaxGFP, humanize.Comma(int64(l.Frames)))
	if kind, err := doc.Kind(); err == nil {
		fmt.Fprintf(out, "Content:   %s\n", kind)
	}
	return nil
}

// printDocumentSummary is the one line description used by the other commands.
func printDocumentSummary(cmd *cobra.Command, doc *tracks.Document) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s, %d channels, %s time frames, session %d/%d\n",
		doc.Path(), doc.Format(), doc.ChannelCount(), humanize.Comma(int64(doc.TimeFrameCount())),
		doc.CurrentSession()+1, doc.SessionCount())
}
