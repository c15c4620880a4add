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

	"github.com/spf13/cobra"
)

var (
	spectrumChannel string
	spectrumFrom    int
	spectrumSize    int
	spectrumProc    processing
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum <file>",
	Short: "Print the amplitude spectrum of a channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpectrum,
}

func init() {
	rootCmd.AddCommand(spectrumCmd)

	spectrumCmd.Flags().StringVarP(&spectrumChannel, "channel", "c", "0", "Channel name or index")
	spectrumCmd.Flags().IntVar(&spectrumFrom, "from", 0, "First time frame")
	spectrumCmd.Flags().IntVar(&spectrumSize, "size", 256, "Window size, a power of two")
	spectrumProc.register(spectrumCmd.Flags())
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()
	printDocumentSummary(cmd, doc)

	if err := spectrumProc.apply(doc); err != nil {
		return err
	}
	c, err := channelIndex(doc, spectrumChannel)
	if err != nil {
		return err
	}
	s, err := doc.Spectrum(c, spectrumFrom, spectrumSize)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unit := "-"
	if ch, err := doc.Channel(c); err == nil && ch.Unit != "" {
		unit = ch.Unit
	}
	for i, a := range s.Amplitude {
		if s.Resolution > 0 {
			fmt.Fprintf(out, "%10.3f Hz  %.6g %s\n", s.Frequency(i), a, unit)
		} else {
			fmt.Fprintf(out, "%10d     %.6g %s\n", i, a, unit)
		}
	}
	return nil
}
