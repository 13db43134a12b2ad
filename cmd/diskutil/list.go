// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/disks"
	"github.com/siderolabs/go-disktree/internal/render"
	"github.com/siderolabs/go-disktree/mountinfo"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var (
		jsonOutput bool
		indentSize int
		mounts     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all block devices in a hierarchical format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}

			defer logger.Sync() //nolint:errcheck

			if cmd.Flags().Changed("indent-size") {
				cfg.IndentSize = indentSize
			}

			if cmd.Flags().Changed("mounts") {
				cfg.Mounts = mounts
			}

			backend, err := openBackend(cfg, logger)
			if err != nil {
				return err
			}

			defer backend.Close() //nolint:errcheck

			result, err := disks.Discover(cmd.Context(), backend, disks.WithLogger(logger))
			if err != nil {
				return err
			}

			opts := render.Options{IndentSize: cfg.IndentSize}

			if cfg.Mounts {
				table, err := mountinfo.Read()
				if err != nil {
					logger.Warn("failed to read mount table", zap.Error(err))
				}

				opts.Mounts = mountinfo.ByDevice(table)
			}

			if jsonOutput {
				return render.JSON(cmd.OutOrStdout(), result.Disks, opts)
			}

			return render.Table(cmd.OutOrStdout(), result.Disks, opts)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")
	cmd.Flags().IntVarP(&indentSize, "indent-size", "i", render.DefaultIndentSize, "the indentation size for the tree output format")
	cmd.Flags().BoolVar(&mounts, "mounts", false, "show mount points")

	return cmd
}
