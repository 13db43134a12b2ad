// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package sysfs

import (
	"context"
	"fmt"

	"github.com/siderolabs/go-disktree/device"
)

// Backend is not available on this platform.
type Backend struct{}

// New returns an error on non-Linux platforms.
func New(...Option) (*Backend, error) {
	return nil, fmt.Errorf("%w: sysfs is only available on Linux", device.ErrBackendUnavailable)
}

// Enumerate implements device.Backend.
func (b *Backend) Enumerate(context.Context, string) ([]device.Record, error) {
	return nil, device.ErrBackendUnavailable
}

// Close implements device.Backend.
func (b *Backend) Close() error {
	return nil
}
