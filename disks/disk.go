// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package disks reconstructs the disk and partition hierarchy from a flat device enumeration.
package disks

import (
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/siderolabs/go-disktree/device"
)

// SectorSize is the unit of the kernel "size" attribute.
const SectorSize = 512

// Disk is a disk or a partition in the reconstructed topology.
//
// Disk is immutable once returned.
type Disk struct {
	dev        device.Record
	parent     *Disk
	partitions []*Disk
}

// Device returns the underlying device record.
func (d *Disk) Device() device.Record {
	return d.dev
}

// Parent returns the enclosing disk for partitions, nil otherwise.
func (d *Disk) Parent() *Disk {
	return d.parent
}

// IsPartition is true if the disk has a parent.
func (d *Disk) IsPartition() bool {
	return d.parent != nil
}

// Partitions returns the nested partitions in discovery order.
func (d *Disk) Partitions() []*Disk {
	return slices.Clone(d.partitions)
}

// Name returns the kernel name of the device.
func (d *Disk) Name() string {
	return d.dev.Name()
}

// DeviceMajor returns the major device number, "0" if unknown.
func (d *Disk) DeviceMajor() string {
	return d.propertyOr(device.PropertyMajor, "0")
}

// DeviceMinor returns the minor device number, "0" if unknown.
func (d *Disk) DeviceMinor() string {
	return d.propertyOr(device.PropertyMinor, "0")
}

// DeviceID returns "major:minor".
func (d *Disk) DeviceID() string {
	return d.DeviceMajor() + ":" + d.DeviceMinor()
}

// Removable reports whether the media is removable.
func (d *Disk) Removable() bool {
	v, _ := d.dev.Attribute(device.AttributeRemovable)

	return v == "1"
}

// ReadOnly reports whether the kernel has marked the device read-only.
func (d *Disk) ReadOnly() bool {
	v, _ := d.dev.Attribute(device.AttributeReadOnly)

	return v == "1"
}

// Type returns the raw device type (disk, partition).
func (d *Disk) Type() string {
	return d.dev.DevType()
}

// FileSystem returns the detected filesystem type.
func (d *Disk) FileSystem() (string, bool) {
	return d.dev.Property(device.PropertyFSType)
}

// UniqueID returns the filesystem identifier as reported by the backend.
func (d *Disk) UniqueID() (string, bool) {
	return d.dev.Property(device.PropertyFSUUID)
}

// UUID returns the filesystem identifier if it is a well-formed UUID.
//
// Some filesystems (e.g. vfat) use short serial numbers instead.
func (d *Disk) UUID() (uuid.UUID, bool) {
	id, ok := d.UniqueID()
	if !ok || len(id) != 36 {
		return uuid.Nil, false
	}

	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}

	return u, true
}

// Label returns the filesystem label.
func (d *Disk) Label() (string, bool) {
	return d.dev.Property(device.PropertyFSLabel)
}

// Size returns the size in bytes, or 0 if unknown.
func (d *Disk) Size() uint64 {
	v, ok := d.dev.Attribute(device.AttributeSize)
	if !ok {
		return 0
	}

	sectors, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}

	return sectors * SectorSize
}

// DeviceNode returns the path of the device node.
func (d *Disk) DeviceNode() string {
	return d.dev.NodeID()
}

// Walk visits the disk and all nested partitions depth-first, parents before children.
func (d *Disk) Walk(fn func(*Disk)) {
	fn(d)

	for _, p := range d.partitions {
		p.Walk(fn)
	}
}

func (d *Disk) propertyOr(name, def string) string {
	if v, ok := d.dev.Property(name); ok {
		return v
	}

	return def
}
