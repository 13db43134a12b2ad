// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mountinfo

import (
	"strconv"
	"strings"
)

// Kind is the kind of an option value.
type Kind int

// Option value kinds.
const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindList
)

// Option is a single mount option.
//
// Only the field matching Kind is set.
//
//nolint:govet
type Option struct {
	Name   string
	Kind   Kind
	Bool   bool
	Number int
	Str    string
	List   []string
}

// ParseOption parses "name", "noname", "name=value" and "name=a:b".
func ParseOption(s string) Option {
	name, value, found := strings.Cut(s, "=")
	if !found {
		if trimmed, ok := strings.CutPrefix(s, "no"); ok && trimmed != "" {
			return Option{Name: trimmed, Kind: KindBool, Bool: false}
		}

		return Option{Name: s, Kind: KindBool, Bool: true}
	}

	if strings.Contains(value, ":") {
		return Option{Name: name, Kind: KindList, List: strings.Split(value, ":")}
	}

	if n, err := strconv.Atoi(value); err == nil {
		return Option{Name: name, Kind: KindNumber, Number: n}
	}

	return Option{Name: name, Kind: KindString, Str: value}
}

// String formats the option the way ParseOption accepts it.
func (o Option) String() string {
	switch o.Kind {
	case KindList:
		return o.Name + "=" + strings.Join(o.List, ":")
	case KindNumber:
		return o.Name + "=" + strconv.Itoa(o.Number)
	case KindString:
		return o.Name + "=" + o.Str
	case KindBool:
		if o.Bool {
			return o.Name
		}

		return "no" + o.Name
	default:
		return o.Name
	}
}
