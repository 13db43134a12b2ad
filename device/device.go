// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package device defines the contract between device enumeration backends and the disk topology builder.
package device

import (
	"context"
	"errors"
)

// ErrBackendUnavailable is returned when the device backend could not be initialized or queried.
var ErrBackendUnavailable = errors.New("device backend unavailable")

// SubsystemBlock is the subsystem of block devices.
const SubsystemBlock = "block"

// Well-known device property names.
const (
	PropertyMajor   = "MAJOR"
	PropertyMinor   = "MINOR"
	PropertyDevName = "DEVNAME"
	PropertyDevType = "DEVTYPE"
	PropertyDevPath = "DEVPATH"
	PropertyFSType  = "ID_FS_TYPE"
	PropertyFSUUID  = "ID_FS_UUID"
	PropertyFSLabel = "ID_FS_LABEL"
	PropertySubsys  = "SUBSYSTEM"
)

// Well-known device attribute names.
const (
	AttributeRemovable = "removable"
	AttributeReadOnly  = "ro"
	AttributeSize      = "size"
)

// Type is the classification of a device record.
type Type int

// Device types.
const (
	TypeOther Type = iota
	TypeDisk
	TypePartition
)

func (t Type) String() string {
	switch t {
	case TypeDisk:
		return "disk"
	case TypePartition:
		return "partition"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseType converts the device type tag reported by the backend.
//
// Any tag which is not a disk or a partition is TypeOther.
func ParseType(tag string) Type {
	switch tag {
	case "disk":
		return TypeDisk
	case "partition":
		return TypePartition
	default:
		return TypeOther
	}
}

// Record is a single device as reported by a backend.
//
// Records are only valid for the enumeration which produced them.
type Record interface {
	// NodeID is the device node (e.g. /dev/sda), unique within one enumeration.
	NodeID() string
	// Name is the kernel name of the device (e.g. sda1).
	Name() string
	// DevType is the raw device type tag.
	DevType() string
	// Type is the classified device type.
	Type() Type
	// Property returns the value of the device property.
	Property(name string) (string, bool)
	// Properties returns a copy of all device properties.
	Properties() map[string]string
	// Attribute returns the value of the system attribute.
	Attribute(name string) (string, bool)
	// Parent returns the immediate parent device, or nil.
	Parent() Record
}

// Backend enumerates devices.
type Backend interface {
	// Enumerate returns all devices of the subsystem, in no particular order.
	Enumerate(ctx context.Context, subsystem string) ([]Record, error)
	// Close releases backend resources.
	Close() error
}
