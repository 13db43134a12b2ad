// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mountinfo_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-disktree/mountinfo"
)

const mounts = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
/dev/sda2 / ext4 rw,relatime,errors=remount-ro,commit=30 0 1

/dev/sda1 /boot/efi vfat ro,fmask=0077,codepage=437,iocharset=ascii 0 2
/dev/sdb1 /mnt/my\040disk xfs rw,lowerdir=/a:/b 0 0
/dev/sda2 /var/lib/kubelet ext4 rw 0 0
`

func TestParse(t *testing.T) {
	result, err := mountinfo.Parse(strings.NewReader(mounts))
	require.NoError(t, err)
	require.Len(t, result, 5)

	root := result[1]
	assert.Equal(t, "/dev/sda2", root.Source)
	assert.Equal(t, "/", root.Target)
	assert.Equal(t, "ext4", root.FSType)
	assert.Equal(t, 0, root.Dump)
	assert.Equal(t, 1, root.Pass)
	assert.False(t, root.ReadOnly())

	errors, ok := root.Option("errors")
	require.True(t, ok)
	assert.Equal(t, mountinfo.KindString, errors.Kind)
	assert.Equal(t, "remount-ro", errors.Str)

	commit, ok := root.Option("commit")
	require.True(t, ok)
	assert.Equal(t, mountinfo.KindNumber, commit.Kind)
	assert.Equal(t, 30, commit.Number)

	efi := result[2]
	assert.True(t, efi.ReadOnly())
	assert.Equal(t, 2, efi.Pass)

	assert.Equal(t, "/mnt/my disk", result[3].Target)

	lower, ok := result[3].Option("lowerdir")
	require.True(t, ok)
	assert.Equal(t, []string{"/a", "/b"}, lower.List)

	exec, ok := result[0].Option("exec")
	require.True(t, ok)
	assert.False(t, exec.Bool)

	assert.Equal(t, map[string][]string{
		"sysfs":     {"/sys"},
		"/dev/sda2": {"/", "/var/lib/kubelet"},
		"/dev/sda1": {"/boot/efi"},
		"/dev/sdb1": {"/mnt/my disk"},
	}, mountinfo.ByDevice(result))
}

func TestParseErrors(t *testing.T) {
	_, err := mountinfo.Parse(strings.NewReader("/dev/sda1 / ext4 rw 0 0\n/dev/sda2 /home\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "line 2")

	_, err = mountinfo.Parse(strings.NewReader("/dev/sda1 / ext4 rw x 0\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid dump field")
}

func TestOption(t *testing.T) {
	for _, test := range []struct {
		in       string
		expected mountinfo.Option
	}{
		{"rw", mountinfo.Option{Name: "rw", Kind: mountinfo.KindBool, Bool: true}},
		{"noatime", mountinfo.Option{Name: "atime", Kind: mountinfo.KindBool}},
		{"no", mountinfo.Option{Name: "no", Kind: mountinfo.KindBool, Bool: true}},
		{"mode=755", mountinfo.Option{Name: "mode", Kind: mountinfo.KindNumber, Number: 755}},
		{"size=10%", mountinfo.Option{Name: "size", Kind: mountinfo.KindString, Str: "10%"}},
		{"context=", mountinfo.Option{Name: "context", Kind: mountinfo.KindString}},
		{"lowerdir=/a:/b:/c", mountinfo.Option{Name: "lowerdir", Kind: mountinfo.KindList, List: []string{"/a", "/b", "/c"}}},
	} {
		t.Run(test.in, func(t *testing.T) {
			opt := mountinfo.ParseOption(test.in)

			assert.Equal(t, test.expected, opt)
			assert.Equal(t, test.in, opt.String())
		})
	}
}

func TestRead(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("mount table is only available on Linux")
	}

	result, err := mountinfo.Read()
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}
