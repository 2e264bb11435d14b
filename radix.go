// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package radix implements a device-style multi-pass radix sort for
// fixed-width unsigned keys, optionally paired with values.
//
// Each pass buckets keys on a small digit place (a window of key bits, least
// significant first) in three strictly ordered stages, the way accelerator
// radix sorts do it: an upsweep histogram of per-block digit counts, a spine
// scan producing a global bin-carry table, and a downsweep that ranks and
// scatters every element to its globally correct slot. Blocks -- the unit of
// grid scheduling -- share nothing within a stage; the carry table computed
// between stages is the only cross-block contract. Passes ping-pong between
// the two halves of a DoubleBuffer.
//
// The sort is stable per digit place, so the full run over all digit places
// yields a stable total order.
//
// Simple use:
//
//	keys := []uint32{...}
//	if err := radix.Sort(keys); err != nil { ... }
//
// Callers that re-sort repeatedly, sort key/value pairs, or want control
// over tuning and grid size should build a Sorter.
package radix

import (
	"golang.org/x/exp/constraints"

	"github.com/gomlx/radix/internal/grid"
	"github.com/gomlx/radix/policy"
)

// Sorter holds the tuning policy and grid scheduler for radix sorts. It is
// reusable across calls; a zero grid-size means the size is chosen per sort
// from the machine's concurrent-block capacity times the policy's
// oversubscription multiplier.
//
// A Sorter is safe for sequential reuse. Concurrent Sort calls on the same
// Sorter are not supported.
type Sorter[K constraints.Unsigned, V any] struct {
	pol      policy.Policy
	grid     *grid.Grid
	gridSize int
}

// Option configures a Sorter.
type Option func(*sorterConfig)

type sorterConfig struct {
	pol      policy.Policy
	gridSize int
	maxConc  *int
}

// WithPolicy overrides the tuning policy detected for this machine.
func WithPolicy(pol policy.Policy) Option {
	return func(c *sorterConfig) { c.pol = pol }
}

// WithGridSize fixes the number of blocks launched per pass instead of
// deriving it from occupancy and oversubscription.
func WithGridSize(numBlocks int) Option {
	return func(c *sorterConfig) { c.gridSize = numBlocks }
}

// WithMaxConcurrentBlocks bounds how many blocks run at once. 0 runs blocks
// inline in order (useful for debugging); negative is unlimited.
func WithMaxConcurrentBlocks(n int) Option {
	return func(c *sorterConfig) { c.maxConc = &n }
}

// NewSorter builds a Sorter for key type K and value type V. Use V=struct{}
// (or the package-level Sort helpers) for keys-only sorts.
func NewSorter[K constraints.Unsigned, V any](opts ...Option) *Sorter[K, V] {
	cfg := sorterConfig{pol: policy.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := grid.New()
	if cfg.maxConc != nil {
		g.SetMaxConcurrentBlocks(*cfg.maxConc)
	}
	return &Sorter[K, V]{pol: cfg.pol, grid: g, gridSize: cfg.gridSize}
}

// Policy returns the Sorter's tuning policy.
func (s *Sorter[K, V]) Policy() policy.Policy { return s.pol }

// Sort sorts keys in place (values, when non-nil, are permuted alongside)
// over the key's full bit width.
func (s *Sorter[K, V]) Sort(keys []K, values []V) error {
	return s.SortBitRange(keys, values, 0, keyBits[K]())
}

// SortBitRange sorts keys in place by bits [beginBit, endBit) only; key bits
// outside the window do not participate, and elements equal under the window
// keep their relative order.
func (s *Sorter[K, V]) SortBitRange(keys []K, values []V, beginBit, endBit int) error {
	db := NewDoubleBuffer[K, V](keys, values)
	if err := s.SortDoubleBuffer(db, beginBit, endBit); err != nil {
		return err
	}
	// An odd number of flips leaves the result in the alternate storage;
	// fold it back into the caller's slices.
	if db.Selector() != 0 {
		curKeys, curVals := db.Current()
		copy(keys, curKeys)
		if values != nil {
			copy(values, curVals)
		}
	}
	return nil
}

// SortDoubleBuffer is the allocation-conscious entry point: it sorts the
// front buffer of db by bits [beginBit, endBit), leaving the result wherever
// the final flip put it -- the caller reads db.Current() and may keep the
// DoubleBuffer (and its lazily allocated alternate pair) for later sorts.
func (s *Sorter[K, V]) SortDoubleBuffer(db *DoubleBuffer[K, V], beginBit, endBit int) error {
	return s.sortBuffer(db, beginBit, endBit)
}

// Sort sorts keys in place over their full bit width with the default
// policy for this machine.
func Sort[K constraints.Unsigned](keys []K, opts ...Option) error {
	return NewSorter[K, struct{}](opts...).Sort(keys, nil)
}

// SortBitRange sorts keys in place by bits [beginBit, endBit) with the
// default policy for this machine.
func SortBitRange[K constraints.Unsigned](keys []K, beginBit, endBit int, opts ...Option) error {
	return NewSorter[K, struct{}](opts...).SortBitRange(keys, nil, beginBit, endBit)
}

// SortPairs sorts keys in place over their full bit width, permuting values
// alongside them. Pairs with equal keys keep their relative order.
func SortPairs[K constraints.Unsigned, V any](keys []K, values []V, opts ...Option) error {
	return NewSorter[K, V](opts...).Sort(keys, values)
}

// SortPairsBitRange sorts key/value pairs by key bits [beginBit, endBit).
func SortPairsBitRange[K constraints.Unsigned, V any](keys []K, values []V, beginBit, endBit int, opts ...Option) error {
	return NewSorter[K, V](opts...).SortBitRange(keys, values, beginBit, endBit)
}
