// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mountinfo parses the kernel mount table.
package mountinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is the mount table of the calling process.
const DefaultPath = "/proc/self/mounts"

// Mountpoint is a single entry of the mount table.
type Mountpoint struct {
	Source  string
	Target  string
	FSType  string
	Options []Option
	Dump    int
	Pass    int
}

// Option returns the named mount option.
func (m Mountpoint) Option(name string) (Option, bool) {
	for _, o := range m.Options {
		if o.Name == name {
			return o, true
		}
	}

	return Option{}, false
}

// ReadOnly reports whether the mount carries the ro flag.
func (m Mountpoint) ReadOnly() bool {
	o, ok := m.Option("ro")

	return ok && o.Kind == KindBool && o.Bool
}

// Read parses the mount table of the calling process.
func Read() ([]Mountpoint, error) {
	f, err := os.Open(DefaultPath)
	if err != nil {
		return nil, err
	}

	defer f.Close() //nolint:errcheck

	return Parse(f)
}

// Parse parses mount table lines in fstab format.
func Parse(r io.Reader) ([]Mountpoint, error) {
	var (
		result []Mountpoint
		lineNo int
	)

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 || len(fields) > 6 {
			return nil, fmt.Errorf("line %d: expected 4 to 6 fields, got %d", lineNo, len(fields))
		}

		m := Mountpoint{
			Source: unescape(fields[0]),
			Target: unescape(fields[1]),
			FSType: unescape(fields[2]),
		}

		for _, o := range strings.Split(fields[3], ",") {
			m.Options = append(m.Options, ParseOption(unescape(o)))
		}

		var err error

		if len(fields) > 4 {
			if m.Dump, err = strconv.Atoi(fields[4]); err != nil {
				return nil, fmt.Errorf("line %d: invalid dump field: %w", lineNo, err)
			}
		}

		if len(fields) > 5 {
			if m.Pass, err = strconv.Atoi(fields[5]); err != nil {
				return nil, fmt.Errorf("line %d: invalid pass field: %w", lineNo, err)
			}
		}

		result = append(result, m)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	return result, nil
}

// ByDevice maps mount sources to their targets, in table order.
func ByDevice(mounts []Mountpoint) map[string][]string {
	result := map[string][]string{}

	for _, m := range mounts {
		result[m.Source] = append(result[m.Source], m.Target)
	}

	return result
}

// unescape decodes the octal escapes the kernel uses for whitespace and backslashes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1:i+4]) {
			v, _ := strconv.ParseUint(s[i+1:i+4], 8, 8) //nolint:errcheck

			sb.WriteByte(byte(v))

			i += 3

			continue
		}

		sb.WriteByte(s[i])
	}

	return sb.String()
}

func isOctal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '7' {
			return false
		}
	}

	return s[0] <= '3'
}
