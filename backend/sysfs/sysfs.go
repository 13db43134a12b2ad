// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sysfs implements a device backend on top of /sys and the udev database.
package sysfs

import "go.uber.org/zap"

// Default locations.
const (
	DefaultRoot        = "/sys"
	DefaultUdevDataDir = "/run/udev/data"
	DefaultDevDir      = "/dev"
)

// Options configure the sysfs backend.
type Options struct {
	// Logger to use for logging.
	Logger *zap.Logger
	// Root of the sysfs mount.
	Root string
	// UdevDataDir is the udev database directory.
	UdevDataDir string
	// DevDir is the directory holding device nodes.
	DevDir string
}

// Option is a function that sets some option.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRoot sets the sysfs root.
//
// The sysfs mount check is only performed for the default root.
func WithRoot(root string) Option {
	return func(o *Options) {
		o.Root = root
	}
}

// WithUdevDataDir sets the udev database directory.
func WithUdevDataDir(dir string) Option {
	return func(o *Options) {
		o.UdevDataDir = dir
	}
}

// WithDevDir sets the directory of device nodes.
func WithDevDir(dir string) Option {
	return func(o *Options) {
		o.DevDir = dir
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger:      zap.NewNop(),
		Root:        DefaultRoot,
		UdevDataDir: DefaultUdevDataDir,
		DevDir:      DefaultDevDir,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
