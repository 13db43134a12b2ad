// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package snapshot stores device enumerations as YAML documents.
//
// Snapshots make it possible to reproduce a device topology without access
// to the machine it was captured on. Files with the ".zst" extension are
// zstd-compressed.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/siderolabs/go-disktree/device"
)

// CompressedExt marks zstd-compressed snapshots.
const CompressedExt = ".zst"

// DefaultAttributes are the system attributes captured for each device.
var DefaultAttributes = []string{
	device.AttributeRemovable,
	device.AttributeReadOnly,
	device.AttributeSize,
}

// ErrInvalid is returned for snapshots which do not describe a device forest.
var ErrInvalid = errors.New("invalid snapshot")

// Device is a single captured device.
//
// Parent refers to another device by Name.
//
//nolint:govet
type Device struct {
	Node       string            `yaml:"node"`
	Name       string            `yaml:"name"`
	DevType    string            `yaml:"devtype"`
	Subsystem  string            `yaml:"subsystem,omitempty"`
	Parent     string            `yaml:"parent,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// File is the snapshot document.
type File struct {
	Devices []Device `yaml:"devices"`
}

// Load decodes a snapshot into a static backend.
func Load(r io.Reader) (*device.Static, error) {
	var file File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return device.NewStatic(), nil
		}

		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return file.Backend()
}

// Open loads the snapshot at path.
func Open(path string) (*device.Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close() //nolint:errcheck

	if !strings.HasSuffix(path, CompressedExt) {
		return Load(f)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	defer zr.Close()

	return Load(zr)
}

// Backend builds the static backend, validating parent references.
func (file *File) Backend() (*device.Static, error) {
	records := make([]*device.StaticRecord, 0, len(file.Devices))
	byName := make(map[string]*device.StaticRecord, len(file.Devices))

	for _, d := range file.Devices {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: device %q has no name", ErrInvalid, d.Node)
		}

		if _, ok := byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate device %q", ErrInvalid, d.Name)
		}

		rec := &device.StaticRecord{
			Node:      d.Node,
			SysName:   d.Name,
			Tag:       d.DevType,
			Subsystem: d.Subsystem,
			Props:     d.Properties,
			Attrs:     d.Attributes,
		}

		records = append(records, rec)
		byName[d.Name] = rec
	}

	for i, d := range file.Devices {
		if d.Parent == "" {
			continue
		}

		parent, ok := byName[d.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: device %q refers to unknown parent %q", ErrInvalid, d.Name, d.Parent)
		}

		records[i].ParentNode = parent
	}

	for _, rec := range records {
		if err := checkCycle(rec, len(records)); err != nil {
			return nil, err
		}
	}

	return device.NewStatic(records...), nil
}

// checkCycle fails if following parents from rec takes more steps than there are records.
func checkCycle(rec *device.StaticRecord, limit int) error {
	steps := 0

	for p := rec.ParentNode; p != nil; p = p.ParentNode {
		steps++

		if steps > limit {
			return fmt.Errorf("%w: parent cycle through %q", ErrInvalid, rec.SysName)
		}
	}

	return nil
}

// Capture converts records into a snapshot document.
//
// Ancestors which were not enumerated are captured as well so that parent
// references always resolve.
func Capture(records []device.Record, attributes ...string) (*File, error) {
	if len(attributes) == 0 {
		attributes = DefaultAttributes
	}

	file := &File{}
	seen := map[string]device.Record{}

	var add func(rec device.Record) error

	add = func(rec device.Record) error {
		if prev, ok := seen[rec.Name()]; ok {
			if prev.NodeID() != rec.NodeID() {
				return fmt.Errorf("%w: duplicate device %q", ErrInvalid, rec.Name())
			}

			return nil
		}

		seen[rec.Name()] = rec

		d := Device{
			Node:       rec.NodeID(),
			Name:       rec.Name(),
			DevType:    rec.DevType(),
			Properties: rec.Properties(),
		}

		d.Subsystem, _ = rec.Property(device.PropertySubsys) //nolint:errcheck

		for _, attr := range attributes {
			if v, ok := rec.Attribute(attr); ok {
				if d.Attributes == nil {
					d.Attributes = map[string]string{}
				}

				d.Attributes[attr] = v
			}
		}

		parent := rec.Parent()
		if parent != nil {
			d.Parent = parent.Name()
		}

		file.Devices = append(file.Devices, d)

		if parent != nil {
			return add(parent)
		}

		return nil
	}

	for _, rec := range records {
		if err := add(rec); err != nil {
			return nil, err
		}
	}

	return file, nil
}

// Write encodes records as a snapshot document.
func Write(w io.Writer, records []device.Record) error {
	file, err := Capture(records)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err = enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return enc.Close()
}

// Save writes the snapshot to path.
func Save(path string, records []device.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if !strings.HasSuffix(path, CompressedExt) {
		return Write(f, records)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if err = Write(zw, records); err != nil {
		zw.Close() //nolint:errcheck

		return err
	}

	return zw.Close()
}
