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

var exportProc processing

var exportCmd = &cobra.Command{
	Use:   "export <in> <out>",
	Short: "Write the processed current session to another format",
	Long: `Write the current session, with its filters and reference applied, to a
new file. The output format follows the extension of <out>.

Examples:
  tracks export night.edf night.sef
  tracks export --session 2 --ref average --lowpass 30 run.vhdr run.eph`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportProc.register(exportCmd.Flags())
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()
	printDocumentSummary(cmd, doc)

	if err := exportProc.apply(doc); err != nil {
		return err
	}
	if err := doc.Export(args[1]); err != nil {
		return fmt.Errorf("error exporting to %s: %w", args[1], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
	return nil
}
