// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package udevadm implements a device backend on top of `udevadm info --export-db`.
package udevadm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/siderolabs/go-cmd/pkg/cmd"
	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/device"
	"github.com/siderolabs/go-disktree/internal/udevdb"
)

// Options configure the udevadm backend.
type Options struct {
	// Logger to use for logging.
	Logger *zap.Logger
	// Command is the udevadm executable.
	Command string
	// SysRoot is used to read device attributes.
	SysRoot string
	// DevDir is the directory holding device nodes.
	DevDir string
}

// Option is a function that sets some option.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCommand sets the udevadm executable.
func WithCommand(command string) Option {
	return func(o *Options) {
		o.Command = command
	}
}

// WithSysRoot sets the sysfs root used for device attributes.
func WithSysRoot(root string) Option {
	return func(o *Options) {
		o.SysRoot = root
	}
}

// WithDevDir sets the directory of device nodes.
//
// It is used for entries which do not carry DEVNAME.
func WithDevDir(dir string) Option {
	return func(o *Options) {
		o.DevDir = dir
	}
}

// Backend runs udevadm on every enumeration.
type Backend struct {
	options Options
}

// New returns a new udevadm backend.
func New(opts ...Option) *Backend {
	options := Options{
		Logger:  zap.NewNop(),
		Command: "udevadm",
		SysRoot: "/sys",
		DevDir:  "/dev",
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Backend{options: options}
}

// Close implements device.Backend.
func (b *Backend) Close() error {
	return nil
}

// Enumerate implements device.Backend.
func (b *Backend) Enumerate(ctx context.Context, subsystem string) ([]device.Record, error) {
	stdout, err := cmd.RunContext(ctx, b.options.Command, "info", "--export-db")
	if err != nil {
		var exitError *cmd.ExitError

		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w: udevadm exited with code %d: %s",
				device.ErrBackendUnavailable, exitError.ExitCode, strings.TrimSpace(string(exitError.Output)))
		}

		return nil, fmt.Errorf("%w: failed to call udevadm: %w", device.ErrBackendUnavailable, err)
	}

	entries, err := udevdb.ParseExport(strings.NewReader(stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrBackendUnavailable, err)
	}

	var (
		records   []*record
		byDevPath = map[string]*record{}
		byName    = map[string]*record{}
	)

	for _, entry := range entries {
		if entry.Properties[device.PropertySubsys] != subsystem {
			continue
		}

		rec := b.newRecord(entry)

		records = append(records, rec)
		byDevPath[rec.devPath] = rec
		byName[rec.name] = rec
	}

	b.options.Logger.Debug("parsed udev database", zap.Int("entries", len(entries)), zap.Int("matched", len(records)))

	result := make([]device.Record, 0, len(records))

	for _, rec := range records {
		if slave := b.dmSlave(rec); slave != "" {
			rec.devType = device.TypePartition.String()
			rec.parent = byName[slave]
		} else {
			rec.parent = byDevPath[path.Dir(rec.devPath)]
		}

		result = append(result, rec)
	}

	return result, nil
}

func (b *Backend) newRecord(entry udevdb.Entry) *record {
	rec := &record{
		sysRoot: b.options.SysRoot,
		devPath: entry.DevPath,
		name:    path.Base(entry.DevPath),
		devType: entry.Properties[device.PropertyDevType],
		props:   entry.Properties,
	}

	switch {
	case entry.Properties[device.PropertyDevName] != "":
		rec.node = entry.Properties[device.PropertyDevName]
	case entry.Name != "":
		rec.node = filepath.Join(b.options.DevDir, entry.Name)
	}

	return rec
}

// dmSlave returns the underlying device of a device-mapper partition.
func (b *Backend) dmSlave(rec *record) string {
	if !strings.HasPrefix(rec.props["DM_UUID"], "part") {
		return ""
	}

	slaves, err := os.ReadDir(filepath.Join(b.options.SysRoot, rec.devPath, "slaves"))
	if err != nil || len(slaves) == 0 {
		b.options.Logger.Debug("no slaves for device-mapper partition", zap.String("name", rec.name), zap.Error(err))

		return ""
	}

	return slaves[0].Name()
}

type record struct {
	sysRoot string
	devPath string
	name    string
	node    string
	devType string
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

// Attribute reads the attribute from sysfs, udev does not export them.
func (r *record) Attribute(name string) (string, bool) {
	if !filepath.IsLocal(name) {
		return "", false
	}

	contents, err := os.ReadFile(filepath.Join(r.sysRoot, r.devPath, name))
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
