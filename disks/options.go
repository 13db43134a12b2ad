// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks

import (
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/device"
)

// Options configure disk discovery.
type Options struct {
	// Logger to use for diagnostics.
	Logger *zap.Logger
	// Subsystem to enumerate.
	Subsystem string
	// SortRoots orders top-level disks by name.
	//
	// By default disks are returned in enumeration order.
	SortRoots bool
}

// Option is a function that sets some option.
type Option func(*Options)

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithSubsystem overrides the enumerated subsystem.
func WithSubsystem(subsystem string) Option {
	return func(o *Options) {
		o.Subsystem = subsystem
	}
}

// WithSortedRoots orders top-level disks by name.
func WithSortedRoots() Option {
	return func(o *Options) {
		o.SortRoots = true
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger:    zap.NewNop(),
		Subsystem: device.SubsystemBlock,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
