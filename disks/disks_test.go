// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/siderolabs/gen/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/siderolabs/go-disktree/device"
	"github.com/siderolabs/go-disktree/disks"
)

func disk(name string) *device.StaticRecord {
	return &device.StaticRecord{
		Node:    "/dev/" + name,
		SysName: name,
		Tag:     "disk",
	}
}

func partition(name string, parent *device.StaticRecord) *device.StaticRecord {
	return &device.StaticRecord{
		Node:       "/dev/" + name,
		SysName:    name,
		Tag:        "partition",
		ParentNode: parent,
	}
}

func records(rs ...*device.StaticRecord) []device.Record {
	return xslices.Map(rs, func(r *device.StaticRecord) device.Record { return r })
}

func names(ds []*disks.Disk) []string {
	return xslices.Map(ds, (*disks.Disk).Name)
}

func find(t *testing.T, ds []*disks.Disk, name string) *disks.Disk {
	t.Helper()

	for _, d := range ds {
		if d.Name() == name {
			return d
		}
	}

	require.Failf(t, "disk not found", "%q not in %v", name, names(ds))

	return nil
}

// edges returns all parent->child edges of the forest plus root markers.
func edges(ds []*disks.Disk) []string {
	var result []string

	for _, root := range ds {
		root.Walk(func(d *disks.Disk) {
			if d.Parent() == nil {
				result = append(result, "root:"+d.DeviceNode())
			} else {
				result = append(result, d.Parent().DeviceNode()+"->"+d.DeviceNode())
			}
		})
	}

	sort.Strings(result)

	return result
}

func assertForest(t *testing.T, ds []*disks.Disk) {
	t.Helper()

	seen := map[*disks.Disk]struct{}{}

	for _, root := range ds {
		assert.False(t, root.IsPartition())
		assert.Nil(t, root.Parent())

		root.Walk(func(d *disks.Disk) {
			_, dup := seen[d]
			assert.False(t, dup, "disk %s reachable twice", d.Name())

			seen[d] = struct{}{}

			assert.Equal(t, d.Parent() != nil, d.IsPartition())

			for _, p := range d.Partitions() {
				assert.Same(t, d, p.Parent())
			}
		})
	}
}

func TestAssembleSharedDisk(t *testing.T) {
	sda := disk("sda")
	sda1 := partition("sda1", sda)
	sda2 := partition("sda2", sda)

	for _, order := range [][]*device.StaticRecord{
		{sda, sda1, sda2},
		{sda1, sda2, sda},
		{sda2, sda, sda1},
	} {
		result := disks.Assemble(records(order...), disks.WithLogger(zaptest.NewLogger(t)))

		assertForest(t, result.Disks)
		assert.Empty(t, result.Skipped)

		require.Len(t, result.Disks, 1)

		root := result.Disks[0]
		assert.Equal(t, "sda", root.Name())
		assert.ElementsMatch(t, []string{"sda1", "sda2"}, names(root.Partitions()))
	}
}

func TestAssembleNesting(t *testing.T) {
	sda := disk("sda")
	sda1 := partition("sda1", sda)
	dm0 := partition("dm-0", sda1)

	result := disks.Assemble(records(dm0, sda, sda1))

	assertForest(t, result.Disks)
	require.Len(t, result.Disks, 1)

	root := result.Disks[0]
	assert.Equal(t, []string{"sda1"}, names(root.Partitions()))

	part := root.Partitions()[0]
	assert.Equal(t, []string{"dm-0"}, names(part.Partitions()))
	assert.Empty(t, part.Partitions()[0].Partitions())

	assert.Equal(t, []string{
		"/dev/sda->/dev/sda1",
		"/dev/sda1->/dev/dm-0",
		"root:/dev/sda",
	}, edges(result.Disks))
}

func TestAssembleVolumeGroup(t *testing.T) {
	nvme := disk("nvme0n1")
	p1 := partition("nvme0n1p1", nvme)
	p2 := partition("nvme0n1p2", nvme)
	vg := partition("vg0", p2)
	root := partition("vg0-root", vg)
	swap := partition("vg0-swap", vg)

	result := disks.Assemble(records(swap, p1, root, nvme, vg, p2))

	assertForest(t, result.Disks)
	require.Len(t, result.Disks, 1)

	d := find(t, result.Disks, "nvme0n1")
	group := find(t, find(t, d.Partitions(), "nvme0n1p2").Partitions(), "vg0")

	assert.Equal(t, []string{"vg0-swap", "vg0-root"}, names(group.Partitions()))
}

func TestAssembleUnhandledType(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	sda := disk("sda")
	sda1 := partition("sda1", sda)
	loop := &device.StaticRecord{Node: "/dev/sr0", SysName: "sr0", Tag: "cdrom"}

	result := disks.Assemble(records(sda, loop, sda1), disks.WithLogger(zap.New(core)))

	assertForest(t, result.Disks)
	assert.Equal(t, []string{"/dev/sda->/dev/sda1", "root:/dev/sda"}, edges(result.Disks))

	require.Len(t, result.Skipped, 1)

	var typeErr *disks.UnrecognizedDeviceTypeError

	require.True(t, errors.As(result.Skipped[0], &typeErr))
	assert.Equal(t, "cdrom", typeErr.DevType)
	assert.Equal(t, "/dev/sr0", typeErr.NodeID)

	assert.Equal(t, 1, logs.FilterMessage("skipping device").Len())
}

func TestAssembleUnhandledIntermediate(t *testing.T) {
	sda := disk("sda")
	holder := &device.StaticRecord{Node: "/dev/holder", SysName: "holder", Tag: "scsi_holder", ParentNode: sda}
	part := partition("sda1", holder)

	result := disks.Assemble(records(sda, part, holder))

	assertForest(t, result.Disks)
	assert.Equal(t, []string{"/dev/sda->/dev/sda1", "root:/dev/sda"}, edges(result.Disks))
	assert.Len(t, result.Skipped, 1)
}

func TestAssembleDiskWithoutPartitions(t *testing.T) {
	result := disks.Assemble(records(disk("sda"), disk("sdb")))

	assertForest(t, result.Disks)
	require.Len(t, result.Disks, 2)

	for _, d := range result.Disks {
		assert.Empty(t, d.Partitions())
		assert.False(t, d.IsPartition())
	}
}

func TestAssembleOrphanedPartition(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	sda := disk("sda")
	sda1 := partition("sda1", sda)
	orphan := partition("orphan1", nil)
	orphanChild := partition("orphan1p1", orphan)

	result := disks.Assemble(records(orphanChild, sda, sda1, orphan), disks.WithLogger(zap.New(core)))

	assertForest(t, result.Disks)
	assert.Equal(t, []string{"/dev/sda->/dev/sda1", "root:/dev/sda"}, edges(result.Disks))

	require.Len(t, result.Skipped, 2)

	for _, err := range result.Skipped {
		var orphanErr *disks.OrphanedPartitionChainError

		require.True(t, errors.As(err, &orphanErr))
		assert.Equal(t, "/dev/orphan1", orphanErr.Root)
	}

	assert.Equal(t, 2, logs.FilterMessage("skipping device").Len())
}

func TestAssembleConflictingParent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	sda := disk("sda")
	sdb := disk("sdb")
	md0 := partition("md0", sda)
	md0p1 := partition("md0p1", partition("md0", sdb))

	result := disks.Assemble(records(sda, sdb, md0, md0p1), disks.WithLogger(zap.New(core)))

	assertForest(t, result.Disks)
	assert.Equal(t, []string{"/dev/sda->/dev/md0", "root:/dev/sda", "root:/dev/sdb"}, edges(result.Disks))

	require.Len(t, result.Skipped, 1)

	var conflict *disks.ConflictingParentError

	require.ErrorAs(t, result.Skipped[0], &conflict)
	assert.Equal(t, "/dev/md0", conflict.NodeID)
	assert.Equal(t, "/dev/sda", conflict.Parent)
	assert.Equal(t, "/dev/sdb", conflict.RejectedParent)

	skipped := logs.FilterMessage("skipping device").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "md0p1", skipped[0].ContextMap()["name"])
}

func TestAssembleMissingNodeID(t *testing.T) {
	sda := disk("sda")
	sdb := disk("sdb")
	sdb.Node = ""

	sda1 := partition("sda1", sda)
	sdb1 := partition("sdb1", sdb)

	result := disks.Assemble(records(sda, sdb, sda1, sdb1))

	assertForest(t, result.Disks)
	assert.Equal(t, []string{"/dev/sda->/dev/sda1", "root:/dev/sda"}, edges(result.Disks))

	require.Len(t, result.Skipped, 2)

	for _, err := range result.Skipped {
		var nodeErr *disks.InvalidNodeIDError

		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "sdb", nodeErr.Name)
	}
}

func TestAssembleSortedRoots(t *testing.T) {
	result := disks.Assemble(records(disk("sdc"), disk("sda"), disk("sdb")), disks.WithSortedRoots())

	assert.Equal(t, []string{"sda", "sdb", "sdc"}, names(result.Disks))
}

func TestAssembleEmpty(t *testing.T) {
	result := disks.Assemble(nil)

	assert.Empty(t, result.Disks)
	assert.Empty(t, result.Skipped)
}

func TestListIdempotent(t *testing.T) {
	sda := disk("sda")
	sdb := disk("sdb")
	backend := device.NewStatic(
		partition("sdb2", sdb),
		sda,
		partition("sda1", sda),
		partition("dm-0", partition("sdb1", sdb)),
		sdb,
	)

	first, err := disks.List(context.Background(), backend)
	require.NoError(t, err)

	second, err := disks.List(context.Background(), backend)
	require.NoError(t, err)

	assertForest(t, first)
	assert.Equal(t, edges(first), edges(second))
	assert.NotSame(t, first[0], second[0])

	assert.Equal(t, []string{
		"/dev/sda->/dev/sda1",
		"/dev/sdb->/dev/sdb1",
		"/dev/sdb->/dev/sdb2",
		"/dev/sdb1->/dev/dm-0",
		"root:/dev/sda",
		"root:/dev/sdb",
	}, edges(first))
}

type failingBackend struct {
	err error
}

func (b failingBackend) Enumerate(context.Context, string) ([]device.Record, error) {
	return nil, b.err
}

func (b failingBackend) Close() error { return nil }

func TestListBackendUnavailable(t *testing.T) {
	_, err := disks.List(context.Background(), failingBackend{err: errors.New("udev_new() failed")})
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrBackendUnavailable)
	assert.ErrorContains(t, err, "udev_new() failed")

	_, err = disks.Discover(context.Background(), failingBackend{err: device.ErrBackendUnavailable})
	assert.ErrorIs(t, err, device.ErrBackendUnavailable)
}
