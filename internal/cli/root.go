// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package cli implements the tracks command line.
package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/tracks"
	"github.com/OpenPSG/tracks/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	assumeYes  bool
	session    int
)

// SetVersion sets the version reported by --version.
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Inspect and convert EEG/MEG recordings",
	Long: `tracks - read bioelectric recordings of many vendor formats

Supported: EDF/EDF+/BDF, BrainVision, EP/EPH, SEF, RIS, EGI, ERPSS,
Micromed, Neuroscan, MEG raw, Deltamed and WAV.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/tracks/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log decoder details")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Accept degraded modes without asking")
	rootCmd.PersistentFlags().IntVarP(&session, "session", "s", -1, "Session to use (default: the preferred one)")
}

// openDocument opens path with the configuration and logging of the command line.
func openDocument(path string) (*tracks.Document, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	doc, err := tracks.Open(path, &tracks.Options{Config: cfg, Logger: logger, Confirm: confirm})
	if err != nil {
		return nil, err
	}
	if session >= 0 {
		if err := doc.GoToSession(session); err != nil {
			_ = doc.Close()
			return nil, err
		}
	}
	return doc, nil
}

func confirm(question string) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// channelIndex resolves a channel given by name or by 0-based index.
func channelIndex(doc *tracks.Document, s string) (int, error) {
	for i := 0; i < doc.ChannelCount(); i++ {
		if strings.EqualFold(doc.ChannelName(i), s) {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < doc.ChannelCount() {
		return i, nil
	}
	return 0, fmt.Errorf("no channel %q", s)
}
