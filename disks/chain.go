// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks

import (
	"slices"

	"github.com/siderolabs/go-disktree/device"
)

// ChainFor returns the ancestors of the device, from the nearest disk down to the device itself.
//
// If there is no disk ancestor, the chain ends at the topmost reachable device.
func ChainFor(rec device.Record) []device.Record {
	var chain []device.Record

	for current := rec; current != nil; current = current.Parent() {
		chain = append(chain, current)

		if current.Type() == device.TypeDisk {
			break
		}
	}

	slices.Reverse(chain)

	return chain
}
