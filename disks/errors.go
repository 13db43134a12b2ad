// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks

import "fmt"

// UnrecognizedDeviceTypeError is reported for devices which are neither disks nor partitions.
type UnrecognizedDeviceTypeError struct {
	NodeID  string
	DevType string
}

func (e *UnrecognizedDeviceTypeError) Error() string {
	return fmt.Sprintf("unhandled device type %q for %q", e.DevType, e.NodeID)
}

// OrphanedPartitionChainError is reported for partitions without a disk ancestor.
type OrphanedPartitionChainError struct {
	NodeID string
	// Root is the topmost device reached while walking the parents.
	Root string
}

func (e *OrphanedPartitionChainError) Error() string {
	return fmt.Sprintf("partition %q has no disk ancestor (walk stopped at %q)", e.NodeID, e.Root)
}

// ConflictingParentError is reported when a device is found under a second parent.
//
// The first attachment is kept, the device which led to the second one is skipped.
type ConflictingParentError struct {
	NodeID         string
	Parent         string
	RejectedParent string
}

func (e *ConflictingParentError) Error() string {
	return fmt.Sprintf("device %q is already attached to %q, not attaching to %q", e.NodeID, e.Parent, e.RejectedParent)
}

// InvalidNodeIDError is reported for devices (or their ancestors) without a device node.
type InvalidNodeIDError struct {
	Name string
}

func (e *InvalidNodeIDError) Error() string {
	return fmt.Sprintf("device %q has no device node", e.Name)
}
