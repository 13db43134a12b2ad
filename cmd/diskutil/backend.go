// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/backend/snapshot"
	"github.com/siderolabs/go-disktree/backend/sysfs"
	"github.com/siderolabs/go-disktree/backend/udev"
	"github.com/siderolabs/go-disktree/backend/udevadm"
	"github.com/siderolabs/go-disktree/device"
	"github.com/siderolabs/go-disktree/internal/config"
)

func openBackend(cfg *config.Config, logger *zap.Logger) (device.Backend, error) {
	switch cfg.Backend {
	case config.BackendSysfs:
		opts := []sysfs.Option{sysfs.WithLogger(logger)}

		if cfg.Sysfs.Root != "" {
			opts = append(opts, sysfs.WithRoot(cfg.Sysfs.Root))
		}

		if cfg.Sysfs.UdevDataDir != "" {
			opts = append(opts, sysfs.WithUdevDataDir(cfg.Sysfs.UdevDataDir))
		}

		return sysfs.New(opts...)
	case config.BackendUdevadm:
		opts := []udevadm.Option{udevadm.WithLogger(logger)}

		if cfg.Udevadm.Command != "" {
			opts = append(opts, udevadm.WithCommand(cfg.Udevadm.Command))
		}

		if cfg.Sysfs.Root != "" {
			opts = append(opts, udevadm.WithSysRoot(cfg.Sysfs.Root))
		}

		return udevadm.New(opts...), nil
	case config.BackendUdev:
		opts := []udev.Option{udev.WithLogger(logger)}

		for _, tag := range cfg.Udev.Tags {
			opts = append(opts, udev.WithTag(tag))
		}

		for name, value := range cfg.Udev.Properties {
			opts = append(opts, udev.WithProperty(name, value))
		}

		if cfg.Udev.InitializedOnly {
			opts = append(opts, udev.WithInitializedOnly())
		}

		return udev.New(opts...)
	case config.BackendSnapshot:
		backend, err := snapshot.Open(cfg.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", device.ErrBackendUnavailable, err)
		}

		return backend, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
