// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads the diskutil configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendSysfs    = "sysfs"
	BackendUdevadm  = "udevadm"
	BackendUdev     = "udev"
	BackendSnapshot = "snapshot"
)

// Backends lists the supported backend names.
var Backends = []string{BackendSysfs, BackendUdevadm, BackendUdev, BackendSnapshot}

// Config is the diskutil configuration.
//
//nolint:govet
type Config struct {
	Backend    string  `yaml:"backend,omitempty"`
	IndentSize int     `yaml:"indent_size,omitempty"`
	Snapshot   string  `yaml:"snapshot,omitempty"`
	Mounts     bool    `yaml:"mounts,omitempty"`
	Sysfs      Sysfs   `yaml:"sysfs"`
	Udevadm    Udevadm `yaml:"udevadm"`
	Udev       Udev    `yaml:"udev"`
}

// Sysfs configures the sysfs backend.
type Sysfs struct {
	Root        string `yaml:"root,omitempty"`
	UdevDataDir string `yaml:"udev_data_dir,omitempty"`
}

// Udevadm configures the udevadm backend.
type Udevadm struct {
	Command string `yaml:"command,omitempty"`
}

// Udev configures the libudev backend.
//
//nolint:govet
type Udev struct {
	Tags            []string          `yaml:"tags,omitempty"`
	Properties      map[string]string `yaml:"properties,omitempty"`
	InitializedOnly bool              `yaml:"initialized_only,omitempty"`
}

var defaultConfig = Config{
	Backend:    BackendSysfs,
	IndentSize: 2,
}

// Default returns the configuration used without a config file.
func Default() *Config {
	cfg := defaultConfig

	return &cfg
}

// Candidates are searched in order when no path is given.
func Candidates() []string {
	candidates := []string{"/etc/diskutil/config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "diskutil", "config.yaml"))
	}

	return candidates
}

// Load reads the configuration from path.
//
// With an empty path the first existing candidate is used, falling back to defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c

				break
			}
		}
	}

	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found", path)
		}

		return nil, err
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	if cfg.Backend == "" {
		cfg.Backend = defaultConfig.Backend
	}

	if cfg.IndentSize == 0 {
		cfg.IndentSize = defaultConfig.IndentSize
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (cfg *Config) Validate() error {
	if !slices.Contains(Backends, cfg.Backend) {
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.IndentSize < 0 {
		return errors.New("indent size must not be negative")
	}

	if cfg.Backend == BackendSnapshot && cfg.Snapshot == "" {
		return errors.New("snapshot backend requires a snapshot path")
	}

	return nil
}
