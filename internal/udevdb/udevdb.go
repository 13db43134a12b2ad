// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package udevdb parses the udev database formats.
//
// Two formats are supported: the per-device files in /run/udev/data (`E:KEY=VALUE`)
// and the output of `udevadm info --export-db` (`E: KEY=VALUE`, records separated by a blank line).
package udevdb

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Entry is a single device record of the udev database.
type Entry struct {
	// DevPath is the kernel device path, relative to /sys.
	DevPath string
	// Name is the device node name, relative to /dev.
	Name string
	// Links are the device node symlinks, relative to /dev.
	Links []string
	// Properties are the device environment (E: lines).
	Properties map[string]string
}

// splitLine splits "T: value" and "T:value".
func splitLine(line string) (tag byte, value string, ok bool) {
	if len(line) < 2 || line[1] != ':' {
		return 0, "", false
	}

	return line[0], strings.TrimLeft(line[2:], " "), true
}

func (e *Entry) apply(tag byte, value string) {
	switch tag {
	case 'P':
		e.DevPath = value
	case 'N':
		e.Name = value
	case 'S':
		e.Links = append(e.Links, value)
	case 'E':
		key, val, ok := strings.Cut(value, "=")
		if !ok {
			return
		}

		if e.Properties == nil {
			e.Properties = map[string]string{}
		}

		e.Properties[key] = val
	}
}

// ParseDeviceFile parses a /run/udev/data/<id> file.
func ParseDeviceFile(r io.Reader) (*Entry, error) {
	entry := &Entry{Properties: map[string]string{}}

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		tag, value, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}

		entry.apply(tag, value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading udev data: %w", err)
	}

	return entry, nil
}

// ParseExport parses the output of `udevadm info --export-db`.
func ParseExport(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		current *Entry
	)

	flush := func() {
		if current != nil && current.DevPath != "" {
			entries = append(entries, *current)
		}

		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()

			continue
		}

		tag, value, ok := splitLine(line)
		if !ok {
			return nil, fmt.Errorf("malformed udev database line %d: %q", lineNo, line)
		}

		if tag == 'P' {
			flush()
		}

		if current == nil {
			current = &Entry{Properties: map[string]string{}}
		}

		current.apply(tag, value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading udev database: %w", err)
	}

	flush()

	return entries, nil
}
