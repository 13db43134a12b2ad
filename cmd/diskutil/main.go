// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package main implements diskutil, a tool to inspect the block device topology.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/internal/config"
)

type globalFlags struct {
	configFile string
	backend    string
	snapshot   string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "diskutil",
		Short:         "Disk utility for listing block devices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default is /etc/diskutil/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", fmt.Sprintf("device backend, one of %v", config.Backends))
	rootCmd.PersistentFlags().StringVar(&flags.snapshot, "snapshot", "", "snapshot file for the snapshot backend")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newListCmd(&flags))
	rootCmd.AddCommand(newSnapshotCmd(&flags))

	return rootCmd
}

// load merges the config file with the command line flags.
func (flags *globalFlags) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, nil, err
	}

	if cmd.Flags().Changed("backend") {
		cfg.Backend = flags.backend
	}

	if cmd.Flags().Changed("snapshot") {
		cfg.Snapshot = flags.snapshot

		if !cmd.Flags().Changed("backend") {
			cfg.Backend = config.BackendSnapshot
		}
	}

	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var logger *zap.Logger

	if flags.debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
