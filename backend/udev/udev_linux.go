// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux && cgo

package udev

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/jochenvg/go-udev"
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/device"
)

// Backend enumerates devices through libudev.
type Backend struct {
	options Options
	udev    udev.Udev
}

// New returns a new libudev backend.
func New(opts ...Option) (*Backend, error) {
	return &Backend{options: applyOptions(opts...)}, nil
}

// Close implements device.Backend.
func (b *Backend) Close() error {
	return nil
}

// Enumerate implements device.Backend.
func (b *Backend) Enumerate(ctx context.Context, subsystem string) ([]device.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enum := b.udev.NewEnumerate()

	if err := b.match(enum, subsystem); err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrBackendUnavailable, err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to enumerate devices: %w", device.ErrBackendUnavailable, err)
	}

	byName := make(map[string]*record, len(devices))
	records := make([]*record, 0, len(devices))

	for _, dev := range devices {
		rec := wrap(dev)

		records = append(records, rec)
		byName[rec.Name()] = rec
	}

	for _, rec := range records {
		slave := b.dmSlave(rec)
		if slave == "" {
			continue
		}

		parent, ok := byName[slave]
		if !ok {
			b.options.Logger.Debug("device-mapper slave not enumerated", zap.String("name", rec.Name()), zap.String("slave", slave))

			continue
		}

		rec.devType = device.TypePartition.String()
		rec.parent = parent
		rec.parentSet = true
	}

	b.options.Logger.Debug("enumerated devices", zap.String("subsystem", subsystem), zap.Int("count", len(records)))

	result := make([]device.Record, 0, len(records))
	for _, rec := range records {
		result = append(result, rec)
	}

	return result, nil
}

func (b *Backend) match(enum *udev.Enumerate, subsystem string) error {
	if subsystem != "" {
		if err := enum.AddMatchSubsystem(subsystem); err != nil {
			return fmt.Errorf("failed to match subsystem %q: %w", subsystem, err)
		}
	}

	for _, tag := range b.options.Tags {
		if err := enum.AddMatchTag(tag); err != nil {
			return fmt.Errorf("failed to match tag %q: %w", tag, err)
		}
	}

	for name, value := range b.options.Properties {
		if err := enum.AddMatchProperty(name, value); err != nil {
			return fmt.Errorf("failed to match property %q: %w", name, err)
		}
	}

	if b.options.InitializedOnly {
		if err := enum.AddMatchIsInitialized(); err != nil {
			return fmt.Errorf("failed to match initialized devices: %w", err)
		}
	}

	return nil
}

// dmSlave returns the underlying device of a device-mapper partition.
func (b *Backend) dmSlave(rec *record) string {
	dmUUID := rec.dev.PropertyValue("DM_UUID")
	if dmUUID == "" {
		dmUUID = strings.TrimSpace(rec.dev.SysattrValue("dm/uuid"))
	}

	if !strings.HasPrefix(dmUUID, "part") {
		return ""
	}

	slaves, err := os.ReadDir(filepath.Join(rec.dev.Syspath(), "slaves"))
	if err != nil || len(slaves) == 0 {
		return ""
	}

	return slaves[0].Name()
}

type record struct {
	dev       *udev.Device
	devType   string
	parent    *record
	parentSet bool
}

func wrap(dev *udev.Device) *record {
	return &record{
		dev:     dev,
		devType: dev.Devtype(),
	}
}

func (r *record) NodeID() string  { return r.dev.Devnode() }
func (r *record) Name() string    { return r.dev.Sysname() }
func (r *record) DevType() string { return r.devType }

func (r *record) Type() device.Type {
	return device.ParseType(r.devType)
}

func (r *record) Property(name string) (string, bool) {
	v, ok := r.dev.Properties()[name]

	return v, ok
}

func (r *record) Properties() map[string]string {
	return maps.Clone(r.dev.Properties())
}

func (r *record) Attribute(name string) (string, bool) {
	v := r.dev.SysattrValue(name)
	if v == "" {
		return "", false
	}

	return strings.TrimSpace(v), true
}

// Parent returns the libudev parent unless a device-mapper slave was resolved.
func (r *record) Parent() device.Record {
	if r.parentSet {
		return r.parent
	}

	parent := r.dev.Parent()
	if parent == nil {
		return nil
	}

	return wrap(parent)
}
