// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package sysfs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-disktree/device"
	"github.com/siderolabs/go-disktree/internal/udevdb"
)

// Backend enumerates devices by walking /sys/class/<subsystem>.
type Backend struct {
	options Options
}

// New returns a new sysfs backend.
func New(opts ...Option) (*Backend, error) {
	options := applyOptions(opts...)

	if options.Root == DefaultRoot {
		var st unix.Statfs_t

		if err := unix.Statfs(options.Root, &st); err != nil {
			return nil, fmt.Errorf("%w: failed to stat %q: %w", device.ErrBackendUnavailable, options.Root, err)
		}

		if st.Type != unix.SYSFS_MAGIC {
			return nil, fmt.Errorf("%w: %q is not a sysfs mount", device.ErrBackendUnavailable, options.Root)
		}
	}

	return &Backend{options: options}, nil
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

	root, err := filepath.EvalSymlinks(b.options.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrBackendUnavailable, err)
	}

	classDir := filepath.Join(root, "class", subsystem)

	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %q: %w", device.ErrBackendUnavailable, classDir, err)
	}

	var (
		records = make([]*record, 0, len(entries))
		byPath  = make(map[string]*record, len(entries))
		byName  = make(map[string]*record, len(entries))
	)

	for _, entry := range entries {
		path, err := filepath.EvalSymlinks(filepath.Join(classDir, entry.Name()))
		if err != nil {
			b.options.Logger.Warn("failed to resolve device", zap.String("name", entry.Name()), zap.Error(err))

			continue
		}

		rec := b.load(root, subsystem, entry.Name(), path)

		records = append(records, rec)
		byPath[path] = rec
		byName[rec.name] = rec
	}

	for _, rec := range records {
		if rec.slave != "" {
			rec.parent = byName[rec.slave]

			continue
		}

		rec.parent = byPath[filepath.Dir(rec.path)]
	}

	return xslices.Map(records, func(r *record) device.Record { return r }), nil
}

func (b *Backend) load(root, subsystem, name, path string) *record {
	rec := &record{
		name: name,
		path: path,
		props: map[string]string{
			device.PropertySubsys:  subsystem,
			device.PropertyDevPath: strings.TrimPrefix(path, root),
		},
	}

	if err := readUevent(filepath.Join(path, "uevent"), rec.props); err != nil {
		b.options.Logger.Warn("failed to read uevent", zap.String("name", name), zap.Error(err))
	}

	b.loadUdevData(subsystem, rec)

	rec.devType = rec.props[device.PropertyDevType]

	if devName := rec.props[device.PropertyDevName]; devName != "" {
		if filepath.IsAbs(devName) {
			rec.node = devName
		} else {
			rec.node = filepath.Join(b.options.DevDir, devName)
		}
	}

	// device-mapper partitions (kpartx) are disks to the kernel, their uuid starts with "part"
	if dmUUID, err := os.ReadFile(filepath.Join(path, "dm", "uuid")); err == nil && bytes.HasPrefix(dmUUID, []byte("part")) {
		slaves, err := os.ReadDir(filepath.Join(path, "slaves"))
		if err == nil && len(slaves) > 0 {
			rec.devType = device.TypePartition.String()
			rec.slave = slaves[0].Name()
		}
	}

	return rec
}

func (b *Backend) loadUdevData(subsystem string, rec *record) {
	major, minor := rec.props[device.PropertyMajor], rec.props[device.PropertyMinor]
	if major == "" || minor == "" {
		return
	}

	prefix := "c"
	if subsystem == device.SubsystemBlock {
		prefix = "b"
	}

	f, err := os.Open(filepath.Join(b.options.UdevDataDir, prefix+major+":"+minor))
	if err != nil {
		b.options.Logger.Debug("no udev data", zap.String("name", rec.name), zap.Error(err))

		return
	}

	defer f.Close() //nolint:errcheck

	entry, err := udevdb.ParseDeviceFile(f)
	if err != nil {
		b.options.Logger.Warn("failed to parse udev data", zap.String("name", rec.name), zap.Error(err))

		return
	}

	// kernel properties take precedence
	for k, v := range entry.Properties {
		if _, ok := rec.props[k]; !ok {
			rec.props[k] = v
		}
	}
}

func readUevent(path string, props map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}

		props[key] = value
	}

	return scanner.Err()
}

type record struct {
	name    string
	path    string
	node    string
	devType string
	slave   string
	props   map[string]string
	parent  *record
}

func (r *record) NodeID() string  { return r.node }
func (r *record) Name() string    { return r.name }
func (r *record) DevType() string { return r.devType }

func (r *record) Type() device.Type {
	return device.ParseType(r.devType)
}

func (r *record) Property(name string) (string, bool) {
	v, ok := r.props[name]

	return v, ok
}

func (r *record) Properties() map[string]string {
	return maps.Clone(r.props)
}

// Attribute reads the sysfs attribute file of the device.
func (r *record) Attribute(name string) (string, bool) {
	if !filepath.IsLocal(name) {
		return "", false
	}

	contents, err := os.ReadFile(filepath.Join(r.path, name))
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(string(contents)), true
}

func (r *record) Parent() device.Record {
	if r.parent == nil {
		return nil
	}

	return r.parent
}
