// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/backend/snapshot"
	"github.com/siderolabs/go-disktree/device"
)

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Save the current device enumeration to a file",
		Long: `Save the current device enumeration to a YAML file.

The file can be loaded back with --snapshot. Files ending in .zst are
compressed with zstd.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}

			defer logger.Sync() //nolint:errcheck

			backend, err := openBackend(cfg, logger)
			if err != nil {
				return err
			}

			defer backend.Close() //nolint:errcheck

			records, err := backend.Enumerate(cmd.Context(), device.SubsystemBlock)
			if err != nil {
				return err
			}

			if err = snapshot.Save(args[0], records); err != nil {
				return fmt.Errorf("failed to save snapshot: %w", err)
			}

			logger.Info("snapshot saved", zap.String("path", args[0]), zap.Int("devices", len(records)))

			return nil
		},
	}
}
