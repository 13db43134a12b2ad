// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package device

import (
	"context"
	"maps"
)

// StaticRecord is an in-memory Record.
//
//nolint:govet
type StaticRecord struct {
	Node       string
	SysName    string
	Tag        string
	Subsystem  string
	Props      map[string]string
	Attrs      map[string]string
	ParentNode *StaticRecord
}

// NodeID implements Record.
func (r *StaticRecord) NodeID() string { return r.Node }

// Name implements Record.
func (r *StaticRecord) Name() string { return r.SysName }

// DevType implements Record.
func (r *StaticRecord) DevType() string { return r.Tag }

// Type implements Record.
func (r *StaticRecord) Type() Type { return ParseType(r.Tag) }

// Property implements Record.
func (r *StaticRecord) Property(name string) (string, bool) {
	v, ok := r.Props[name]

	return v, ok
}

// Properties implements Record.
func (r *StaticRecord) Properties() map[string]string {
	return maps.Clone(r.Props)
}

// Attribute implements Record.
func (r *StaticRecord) Attribute(name string) (string, bool) {
	v, ok := r.Attrs[name]

	return v, ok
}

// Parent implements Record.
func (r *StaticRecord) Parent() Record {
	if r.ParentNode == nil {
		return nil
	}

	return r.ParentNode
}

// Static is a Backend over a fixed list of records.
type Static struct {
	Records []*StaticRecord
}

// NewStatic returns a backend enumerating the records.
func NewStatic(records ...*StaticRecord) *Static {
	return &Static{Records: records}
}

// Enumerate implements Backend.
//
// Records with an empty Subsystem match any subsystem.
func (s *Static) Enumerate(_ context.Context, subsystem string) ([]Record, error) {
	result := make([]Record, 0, len(s.Records))

	for _, r := range s.Records {
		if r.Subsystem != "" && subsystem != "" && r.Subsystem != subsystem {
			continue
		}

		result = append(result, r)
	}

	return result, nil
}

// Close implements Backend.
func (s *Static) Close() error { return nil }
