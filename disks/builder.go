// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks

import (
	"github.com/siderolabs/gen/xslices"

	"github.com/siderolabs/go-disktree/device"
)

const noParent = -1

// builderNode is a mutable staging node, children and parent are arena indices.
type builderNode struct {
	record   device.Record
	children []int
	parent   int
}

// treeBuilder is an arena of staging nodes, one per device node.
type treeBuilder struct {
	nodes []builderNode
	index map[string]int

	roots  []int
	isRoot map[int]struct{}
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{
		index:  map[string]int{},
		isRoot: map[int]struct{}{},
	}
}

// getOrCreate returns the node registered for the device node, creating it if needed.
func (b *treeBuilder) getOrCreate(rec device.Record) int {
	if idx, ok := b.index[rec.NodeID()]; ok {
		return idx
	}

	b.nodes = append(b.nodes, builderNode{
		record: rec,
		parent: noParent,
	})

	idx := len(b.nodes) - 1
	b.index[rec.NodeID()] = idx

	return idx
}

// addRoot registers the node as a top-level disk.
func (b *treeBuilder) addRoot(idx int) {
	if _, ok := b.isRoot[idx]; ok {
		return
	}

	b.isRoot[idx] = struct{}{}
	b.roots = append(b.roots, idx)
}

// attachChild links child under parent.
//
// The parent of a node is set once, a node is never listed under two parents.
func (b *treeBuilder) attachChild(parent, child int) error {
	node := &b.nodes[child]

	switch node.parent {
	case parent:
		return nil
	case noParent:
	default:
		return &ConflictingParentError{
			NodeID:         node.record.NodeID(),
			Parent:         b.nodes[node.parent].record.NodeID(),
			RejectedParent: b.nodes[parent].record.NodeID(),
		}
	}

	node.parent = parent
	b.nodes[parent].children = append(b.nodes[parent].children, child)

	return nil
}

// freeze converts the subtree at idx into immutable disks.
func (b *treeBuilder) freeze(idx int, parent *Disk) *Disk {
	node := b.nodes[idx]

	disk := &Disk{
		dev:        node.record,
		parent:     parent,
		partitions: make([]*Disk, 0, len(node.children)),
	}

	for _, child := range node.children {
		disk.partitions = append(disk.partitions, b.freeze(child, disk))
	}

	return disk
}

// freezeRoots freezes every registered root in registration order.
func (b *treeBuilder) freezeRoots() []*Disk {
	return xslices.Map(b.roots, func(idx int) *Disk {
		return b.freeze(idx, nil)
	})
}
