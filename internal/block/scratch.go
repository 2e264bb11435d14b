// Package block implements the per-block kernels of the radix partition
// engine: the upsweep digit histogram and the downsweep tile processor with
// its raking rank scan.
//
// A block is one unit of grid scheduling. It owns a Scratch exclusively and
// processes a contiguous range of tiles; the only cross-block state it ever
// reads is the bin-carry table handed to it at the start of a pass, which by
// construction gives every block disjoint output regions.
package block

import (
	"math/bits"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"

	"github.com/gomlx/radix/policy"
)

// bankShift controls the exchange-buffer padding: one pad slot is inserted
// every 1<<bankShift elements, breaking up power-of-two strides that would
// otherwise land on the same bank.
const bankShift = 5

// padded maps a tile-local rank to its padded exchange-buffer slot.
func padded(i int) int {
	return i + i>>bankShift
}

// paddedLen returns the exchange-buffer length needed for n tile elements.
func paddedLen(n int) int {
	return n + n>>bankShift + 1
}

// Scratch is the block-exclusive working state of the downsweep. It is
// created once per block and reused tile after tile within a pass; nothing
// in it is ever shared between blocks.
type Scratch[K constraints.Unsigned, V any] struct {
	// Geometry, copied out of the tuning policy.
	threads       int
	keysPerThread int
	tileElements  int
	bins          int
	rows          int
	log2Rows      uint
	rakingLanes   int
	warpLanes     int
	scatter       policy.ScatterStrategy
	hasValues     bool

	// counters is the packed per-lane digit-counter grid, rows*threads
	// words laid out row-major. During ranking it is rewritten in place
	// from counts to exclusive prefixes.
	counters []uint64

	// rakingPartials and warpscan drive the reduce-then-scan over the
	// counter grid. warpscan is zero-padded in its lower half.
	rakingPartials []uint64
	warpscan       []uint64

	// digitTotals and digitPrefix hold, per digit, this tile's inclusive
	// count and its exclusive prefix among digits.
	digitTotals []uint32
	digitPrefix []uint32

	// carry is this block's slice of the bin-carry table: the running
	// global write offset per digit, advanced after every tile.
	carry []int64

	// Tile-resident element state.
	keys    []K
	vals    []V
	digits  []uint8
	ranks   []uint32
	targets []int64

	// Padded local exchange buffers for the two-phase scatter.
	exchKeys []K
	exchVals []V
}

// NewScratch allocates the block-local state for the given policy. The
// policy must have been validated; a geometry that does not hold together
// here is a caller bug, not a runtime condition.
func NewScratch[K constraints.Unsigned, V any](pol policy.Policy, hasValues bool) *Scratch[K, V] {
	bins := pol.Bins()
	rows := pol.CounterRows()
	if rows == 0 || rows&(rows-1) != 0 {
		exceptions.Panicf("block: %d bins do not pack into power-of-two counter rows", bins)
	}
	tile := pol.TileElements()
	s := &Scratch[K, V]{
		threads:        pol.BlockThreads,
		keysPerThread:  pol.KeysPerThread,
		tileElements:   tile,
		bins:           bins,
		rows:           rows,
		log2Rows:       uint(bits.TrailingZeros(uint(rows))),
		rakingLanes:    pol.RakingLanes,
		warpLanes:      pol.WarpLanes,
		scatter:        pol.Scatter,
		hasValues:      hasValues,
		counters:       make([]uint64, rows*pol.BlockThreads),
		rakingPartials: make([]uint64, pol.RakingLanes),
		warpscan:       make([]uint64, 2*pol.RakingLanes),
		digitTotals:    make([]uint32, bins),
		digitPrefix:    make([]uint32, bins),
		carry:          make([]int64, bins),
		keys:           make([]K, tile),
		digits:         make([]uint8, tile),
		ranks:          make([]uint32, tile),
		targets:        make([]int64, tile),
		exchKeys:       make([]K, paddedLen(tile)),
	}
	if hasValues {
		s.vals = make([]V, tile)
		s.exchVals = make([]V, paddedLen(tile))
	}
	return s
}

// TileElements returns the tile size this scratch was built for.
func (s *Scratch[K, V]) TileElements() int { return s.tileElements }

// InitCarry seeds the bin-carry table for a new pass from the spine's
// global prefix for this block.
func (s *Scratch[K, V]) InitCarry(offsets []int64) {
	copy(s.carry, offsets)
	for d := len(offsets); d < s.bins; d++ {
		s.carry[d] = 0
	}
}
