package radix

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/gomlx/radix/internal/block"
)

// tileRange is one block's contiguous share of the pass, in tiles.
type tileRange struct {
	loTile, hiTile int
}

// evenShare splits numTiles contiguous tiles across numBlocks blocks, the
// first numTiles%numBlocks blocks taking one extra tile. Contiguity is what
// makes the digit-major bin-carry table a stable global permutation: every
// element of block b precedes every element of block b+1 in input order.
func evenShare(numTiles, numBlocks int) []tileRange {
	shares := make([]tileRange, numBlocks)
	base := numTiles / numBlocks
	extra := numTiles % numBlocks
	tile := 0
	for b := range shares {
		n := base
		if b < extra {
			n++
		}
		shares[b] = tileRange{loTile: tile, hiTile: tile + n}
		tile += n
	}
	return shares
}

// spine turns the per-block, per-digit histogram of a pass into the
// bin-carry table: for each (digit, block), the global offset where that
// block's first element of that digit must land. Digit-major, block-minor
// order keeps blocks' output regions disjoint and the pass stable.
//
// It returns whether at most one digit is occupied, in which case the
// pass's permutation is the identity.
func spine(hist []int64, carries [][]int64, numBlocks, stride, bins int) bool {
	occupied := 0
	var offset int64
	for d := 0; d < bins; d++ {
		start := offset
		for b := 0; b < numBlocks; b++ {
			carries[b][d] = offset
			offset += hist[b*stride+d]
		}
		if offset > start {
			occupied++
		}
	}
	return occupied <= 1
}

// sortBuffer runs the multi-pass state machine over db for the digit places
// covering bits [beginBit, endBit) of the key. Each pass launches upsweep,
// spine, and downsweep strictly in order; passes are never pipelined. On
// return the sorted data is in db's front buffer.
func (s *Sorter[K, V]) sortBuffer(db *DoubleBuffer[K, V], beginBit, endBit int) error {
	pol := s.pol
	if err := pol.Validate(); err != nil {
		return err
	}
	kb := keyBits[K]()
	if beginBit < 0 || endBit > kb || beginBit > endBit {
		return errors.Errorf("radix: bit range [%d,%d) invalid for %d-bit keys", beginBit, endBit, kb)
	}
	keys, values := db.Current()
	n := len(keys)
	hasValues := values != nil
	if hasValues && len(values) != n {
		return errors.Errorf("radix: %d values for %d keys; pair sorts need equal lengths", len(values), n)
	}
	if n < 2 || beginBit == endBit {
		return nil
	}

	tile := pol.TileElements()
	numTiles := (n + tile - 1) / tile
	gridSize := s.gridSize
	if gridSize <= 0 {
		gridSize = s.grid.GridSize(numTiles, pol.Oversubscription)
	}
	if gridSize > numTiles {
		gridSize = numTiles
	}
	shares := evenShare(numTiles, gridSize)

	numPasses := (endBit - beginBit + pol.RadixBits - 1) / pol.RadixBits
	klog.V(1).Infof("radix: sorting %d keys over bits [%d,%d): %d passes of ≤%d bits, grid of %d blocks, %s scatter",
		n, beginBit, endBit, numPasses, pol.RadixBits, gridSize, pol.Scatter)

	// Per-pass shared state, reused across passes. Each block gets its own
	// histogram row, carry row and scratch; blocks never touch each other's.
	stride := pol.Bins()
	hist := make([]int64, gridSize*stride)
	carryRows := make([]int64, gridSize*stride)
	carries := make([][]int64, gridSize)
	for b := range carries {
		carries[b] = carryRows[b*stride : (b+1)*stride]
	}
	scratches := make([]*block.Scratch[K, V], gridSize)

	for bit := beginBit; bit < endBit; bit += pol.RadixBits {
		width := pol.RadixBits
		if bit+width > endBit {
			width = endBit - bit
		}
		mask := uint64(1)<<width - 1
		bins := 1 << width
		front, frontVals := db.Current()

		// Upsweep: per-block digit histograms over the front buffer.
		for i := range hist {
			hist[i] = 0
		}
		s.grid.Launch(gridSize, func(b int) {
			lo, hi := elemRange(shares[b], tile, n)
			block.UpsweepRange(front, lo, hi, uint(bit), mask, hist[b*stride:b*stride+bins])
		})

		// Spine: global bin-carry table; must be complete before any
		// downsweep block starts, which the launch ordering enforces.
		identity := spine(hist, carries, gridSize, stride, bins)
		if identity && pol.EarlyExit {
			// Every element shares this digit: the scatter would be the
			// identity. Skip it and keep the buffers un-flipped.
			klog.V(2).Infof("radix: pass at bit %d early-exit (single occupied bin)", bit)
			continue
		}

		db.EnsureAlternate()
		back, backVals := db.Alternate()

		// Downsweep: every block partitions its tiles into the alternate
		// buffer, coordinating only through its own carry row.
		s.grid.Launch(gridSize, func(b int) {
			sc := scratches[b]
			if sc == nil {
				sc = block.NewScratch[K, V](pol, hasValues)
				scratches[b] = sc
			}
			sc.InitCarry(carries[b])
			for t := shares[b].loTile; t < shares[b].hiTile; t++ {
				off := t * tile
				valid := n - off
				if valid > tile {
					valid = tile
				}
				sc.PartitionTile(front, back, frontVals, backVals, off, valid, uint(bit), mask)
			}
		})

		db.Flip()
	}
	return nil
}

// elemRange converts a block's tile share into element bounds, clipping the
// final tile to the input length.
func elemRange(tr tileRange, tile, n int) (lo, hi int) {
	lo = tr.loTile * tile
	hi = tr.hiTile * tile
	if hi > n {
		hi = n
	}
	return lo, hi
}

// keyBits returns the width of the key type in bits.
func keyBits[K constraints.Unsigned]() int {
	var k K
	return int(unsafe.Sizeof(k)) * 8
}
