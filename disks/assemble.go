// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/siderolabs/go-disktree/device"
)

// Result is the outcome of a topology reconstruction.
type Result struct {
	// Disks are the top-level disks; partitions are reachable via Disk.Partitions.
	Disks []*Disk
	// Skipped lists the devices which could not be placed in the topology.
	Skipped []error
}

// List enumerates the backend and returns the top-level disks.
func List(ctx context.Context, backend device.Backend, opts ...Option) ([]*Disk, error) {
	result, err := Discover(ctx, backend, opts...)
	if err != nil {
		return nil, err
	}

	return result.Disks, nil
}

// Discover enumerates the backend and reconstructs the topology.
//
// Devices which cannot be classified are skipped and reported in Result.Skipped.
func Discover(ctx context.Context, backend device.Backend, opts ...Option) (*Result, error) {
	options := applyOptions(opts...)

	records, err := backend.Enumerate(ctx, options.Subsystem)
	if err != nil {
		if errors.Is(err, device.ErrBackendUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", device.ErrBackendUnavailable, err)
	}

	options.Logger.Debug("enumerated devices", zap.Int("count", len(records)), zap.String("subsystem", options.Subsystem))

	return assemble(records, options), nil
}

// Assemble builds the disk forest from the records.
func Assemble(records []device.Record, opts ...Option) *Result {
	return assemble(records, applyOptions(opts...))
}

func assemble(records []device.Record, options Options) *Result {
	var (
		b      = newTreeBuilder()
		result Result
	)

	skip := func(rec device.Record, err error) {
		options.Logger.Warn("skipping device",
			zap.String("name", rec.Name()),
			zap.String("devtype", rec.DevType()),
			zap.Error(err),
		)

		result.Skipped = append(result.Skipped, err)
	}

	for _, rec := range records {
		if rec.NodeID() == "" {
			skip(rec, &InvalidNodeIDError{Name: rec.Name()})

			continue
		}

		switch rec.Type() {
		case device.TypeDisk:
			b.addRoot(b.getOrCreate(rec))
		case device.TypePartition:
			chain := ChainFor(rec)

			if err := validateChain(rec, chain); err != nil {
				skip(rec, err)

				continue
			}

			current := b.getOrCreate(chain[0])
			b.addRoot(current)

			for _, ancestor := range chain[1:] {
				// unclassified intermediates never enter the forest
				if ancestor.Type() == device.TypeOther {
					continue
				}

				idx := b.getOrCreate(ancestor)

				if err := b.attachChild(current, idx); err != nil {
					skip(rec, err)

					break
				}

				current = idx
			}
		case device.TypeOther:
			skip(rec, &UnrecognizedDeviceTypeError{NodeID: rec.NodeID(), DevType: rec.DevType()})
		}
	}

	result.Disks = b.freezeRoots()

	if options.SortRoots {
		slices.SortStableFunc(result.Disks, func(a, b *Disk) int {
			return cmp.Compare(a.Name(), b.Name())
		})
	}

	return &result
}

func validateChain(rec device.Record, chain []device.Record) error {
	for _, link := range chain {
		if link.NodeID() == "" && link.Type() != device.TypeOther {
			return &InvalidNodeIDError{Name: link.Name()}
		}
	}

	if chain[0].Type() != device.TypeDisk {
		return &OrphanedPartitionChainError{NodeID: rec.NodeID(), Root: chain[0].NodeID()}
	}

	return nil
}
