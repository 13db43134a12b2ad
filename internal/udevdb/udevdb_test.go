// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package udevdb_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-disktree/internal/udevdb"
)

const deviceFile = `S:disk/by-uuid/0f06e81a-e78d-426b-a078-30a01aab3fb7
S:disk/by-partuuid/7f5fcd6c-a703-40d2-8796-e5cf7f3a9eb5
I:1833208
E:ID_FS_TYPE=ext4
E:ID_FS_UUID=0f06e81a-e78d-426b-a078-30a01aab3fb7
E:ID_PART_ENTRY_NAME=STATE
E:ID_MODEL=Samsung SSD 970 EVO=Plus
G:systemd
Q:systemd
V:1
`

func TestParseDeviceFile(t *testing.T) {
	entry, err := udevdb.ParseDeviceFile(strings.NewReader(deviceFile))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"ID_FS_TYPE":         "ext4",
		"ID_FS_UUID":         "0f06e81a-e78d-426b-a078-30a01aab3fb7",
		"ID_PART_ENTRY_NAME": "STATE",
		"ID_MODEL":           "Samsung SSD 970 EVO=Plus",
	}, entry.Properties)

	assert.Equal(t, []string{
		"disk/by-uuid/0f06e81a-e78d-426b-a078-30a01aab3fb7",
		"disk/by-partuuid/7f5fcd6c-a703-40d2-8796-e5cf7f3a9eb5",
	}, entry.Links)
}

const exportDB = `P: /devices/virtual/mem/null
N: null
E: DEVPATH=/devices/virtual/mem/null
E: SUBSYSTEM=mem

P: /devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda
M: sda
U: block
T: disk
D: b 8:0
N: sda
L: 0
S: disk/by-id/ata-QEMU_HARDDISK_QM00001
E: DEVPATH=/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda
E: SUBSYSTEM=block
E: DEVNAME=/dev/sda
E: DEVTYPE=disk
E: MAJOR=8
E: MINOR=0

P: /devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda/sda1
N: sda1
E: DEVPATH=/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda/sda1
E: SUBSYSTEM=block
E: DEVNAME=/dev/sda1
E: DEVTYPE=partition
E: MAJOR=8
E: MINOR=1
E: ID_FS_TYPE=vfat
`

func TestParseExport(t *testing.T) {
	entries, err := udevdb.ParseExport(strings.NewReader(exportDB))
	require.NoError(t, err)

	require.Len(t, entries, 3)

	assert.Equal(t, "/devices/virtual/mem/null", entries[0].DevPath)
	assert.Equal(t, "null", entries[0].Name)

	assert.Equal(t, "sda", entries[1].Name)
	assert.Equal(t, []string{"disk/by-id/ata-QEMU_HARDDISK_QM00001"}, entries[1].Links)
	assert.Equal(t, "disk", entries[1].Properties["DEVTYPE"])
	assert.Equal(t, "8", entries[1].Properties["MAJOR"])

	assert.Equal(t, "sda1", entries[2].Name)
	assert.Equal(t, "vfat", entries[2].Properties["ID_FS_TYPE"])
}

func TestParseExportNoTrailingBlank(t *testing.T) {
	entries, err := udevdb.ParseExport(strings.NewReader("P: /devices/a\nE: A=1\nP: /devices/b\nE: B=2"))
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, map[string]string{"A": "1"}, entries[0].Properties)
	assert.Equal(t, map[string]string{"B": "2"}, entries[1].Properties)
}

func TestParseExportMalformed(t *testing.T) {
	_, err := udevdb.ParseExport(strings.NewReader("P: /devices/a\ngarbage\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "line 2")
}
