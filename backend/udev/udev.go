// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package udev implements a device backend on top of libudev.
package udev

import "go.uber.org/zap"

// Options configure the libudev backend.
//
// Match filters are applied when the enumeration is created.
type Options struct {
	Logger          *zap.Logger
	Tags            []string
	Properties      map[string]string
	InitializedOnly bool
}

// Option is a function that sets some option.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTag limits enumeration to devices carrying the udev tag.
func WithTag(tag string) Option {
	return func(o *Options) {
		o.Tags = append(o.Tags, tag)
	}
}

// WithProperty limits enumeration to devices with the property value.
func WithProperty(name, value string) Option {
	return func(o *Options) {
		if o.Properties == nil {
			o.Properties = map[string]string{}
		}

		o.Properties[name] = value
	}
}

// WithInitializedOnly skips devices udev has not processed yet.
func WithInitializedOnly() Option {
	return func(o *Options) {
		o.InitializedOnly = true
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
