// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package render prints disk trees for the command line.
package render

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/siderolabs/gen/xslices"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-disktree/disks"
)

// DefaultIndentSize is the default partition indentation.
const DefaultIndentSize = 2

// Options control the output.
type Options struct {
	// IndentSize is the number of spaces per tree level.
	IndentSize int
	// Mounts maps device nodes to mount targets, nil disables the column.
	Mounts map[string][]string
}

// sortRoots orders top-level disks by name, descending.
func sortRoots(list []*disks.Disk) []*disks.Disk {
	sorted := slices.Clone(list)

	slices.SortStableFunc(sorted, func(a, b *disks.Disk) int {
		return cmp.Compare(b.Name(), a.Name())
	})

	return sorted
}

// Table writes the disks as an indented tree table.
func Table(w io.Writer, list []*disks.Disk, opts Options) error {
	if opts.IndentSize < 0 {
		return fmt.Errorf("invalid indent size %d", opts.IndentSize)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	header := []string{"NAME", "FSTYPE", "DEVICE", "MAJ:MIN", "SIZE"}
	if opts.Mounts != nil {
		header = append(header, "MOUNTPOINTS")
	}

	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, d := range sortRoots(list) {
		writeRow(tw, d, 0, opts)
	}

	return tw.Flush()
}

func writeRow(w io.Writer, d *disks.Disk, level int, opts Options) {
	name := d.Name()

	if level > 0 {
		name = strings.Repeat(" ", level*opts.IndentSize) + "└─" + name
	}

	fs, _ := d.FileSystem() //nolint:errcheck

	row := []string{
		name,
		fs,
		d.DeviceNode(),
		d.DeviceID(),
		humanize.IBytes(d.Size()),
	}

	if opts.Mounts != nil {
		row = append(row, strings.Join(opts.Mounts[d.DeviceNode()], ","))
	}

	fmt.Fprintln(w, strings.Join(row, "\t"))

	for _, p := range d.Partitions() {
		writeRow(w, p, level+1, opts)
	}
}

// Info is the JSON representation of a disk.
//
// Fields are declared in key order.
type Info struct {
	DeviceID    string   `json:"device_id"`
	DeviceNode  string   `json:"device_node"`
	FileSystem  *string  `json:"filesystem,omitempty"`
	Label       *string  `json:"label,omitempty"`
	Mountpoints []string `json:"mountpoints,omitempty"`
	Name        string   `json:"name"`
	Partitions  []Info   `json:"partitions"`
	ReadOnly    bool     `json:"readonly"`
	Removable   bool     `json:"removable"`
	Size        uint64   `json:"size"`
	Type        string   `json:"type"`
	UUID        *string  `json:"uuid,omitempty"`
}

// InfoOf converts the disk and its partitions.
func InfoOf(d *disks.Disk, mounts map[string][]string) Info {
	info := Info{
		DeviceID:    d.DeviceID(),
		DeviceNode:  d.DeviceNode(),
		Mountpoints: mounts[d.DeviceNode()],
		Name:        d.Name(),
		ReadOnly:    d.ReadOnly(),
		Removable:   d.Removable(),
		Size:        d.Size(),
		Type:        d.Type(),
		Partitions: xslices.Map(d.Partitions(), func(p *disks.Disk) Info {
			return InfoOf(p, mounts)
		}),
	}

	if fs, ok := d.FileSystem(); ok {
		info.FileSystem = pointer.To(fs)
	}

	if label, ok := d.Label(); ok {
		info.Label = pointer.To(label)
	}

	if id, ok := d.UniqueID(); ok {
		info.UUID = pointer.To(id)
	}

	if info.Partitions == nil {
		info.Partitions = []Info{}
	}

	return info
}

// JSON writes the disks as a pretty-printed JSON array.
//
// A zero IndentSize uses DefaultIndentSize.
func JSON(w io.Writer, list []*disks.Disk, opts Options) error {
	if opts.IndentSize < 0 {
		return fmt.Errorf("invalid indent size %d", opts.IndentSize)
	}

	infos := xslices.Map(sortRoots(list), func(d *disks.Disk) Info {
		return InfoOf(d, opts.Mounts)
	})

	if infos == nil {
		infos = []Info{}
	}

	indent := opts.IndentSize
	if indent == 0 {
		// output is always pretty-printed
		indent = DefaultIndentSize
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))

	return enc.Encode(infos)
}
