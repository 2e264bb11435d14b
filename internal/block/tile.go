package block

import "github.com/gomlx/radix/policy"

// PartitionTile processes one tile of the downsweep for the current digit
// place: load a bounded slice of keys (and values) from keysIn, bucket each
// element on the bit window [bit, bit+width), rank it within the block, and
// scatter it to its globally correct slot in keysOut.
//
// tileOffset must be a multiple of the tile size; validCount is how many of
// the tile's slots are in range (the final tile of the input may be short).
// Short tiles load the maximal key into their out-of-range slots so they
// rank after every valid element, and suppress their stores.
//
// The bin carries are advanced by this tile's per-digit totals before
// returning, so the next tile processed by this block continues at the
// correct output position. No cross-block coordination happens here: the
// carries seeded from the spine already make every block's output regions
// disjoint.
func (s *Scratch[K, V]) PartitionTile(keysIn, keysOut []K, valsIn, valsOut []V,
	tileOffset, validCount int, bit uint, mask uint64) {
	tile := s.tileElements
	t := s.threads
	kpt := s.keysPerThread

	// Load. Full tiles go through the wide vector path; the boundary tile
	// loads guarded, with the maximal key as the out-of-range sentinel.
	if validCount == tile && kpt > 1 {
		copy(s.keys, keysIn[tileOffset:tileOffset+tile])
		if s.hasValues {
			copy(s.vals, valsIn[tileOffset:tileOffset+tile])
		}
	} else {
		sentinel := ^K(0)
		for i := 0; i < tile; i++ {
			if i < validCount {
				s.keys[i] = keysIn[tileOffset+i]
				if s.hasValues {
					s.vals[i] = valsIn[tileOffset+i]
				}
			} else {
				s.keys[i] = sentinel
			}
		}
	}

	// Decode digits and count per (digit, lane), recording each element's
	// lane-exclusive prefix (the counter value before its own increment).
	for w := range s.counters {
		s.counters[w] = 0
	}
	for lane := 0; lane < t; lane++ {
		for e := 0; e < kpt; e++ {
			i := lane*kpt + e
			d := int((uint64(s.keys[i]) >> bit) & mask)
			s.digits[i] = uint8(d)
			w := (d&(s.rows-1))*t + lane
			c := uint(d) >> s.log2Rows
			s.ranks[i] = uint32(counterGet(s.counters[w], c))
			s.counters[w] += counterOne(c)
		}
	}

	// Block-wide rank scan; also retires this tile's digit prefixes into
	// the carries. The barrier between the scan and the rank reads below
	// is implicit here: one goroutine plays the whole block.
	s.rankTile()

	// Final local rank: lane-exclusive prefix plus the digit-grouped
	// block-exclusive prefix for (digit, lane).
	for lane := 0; lane < t; lane++ {
		for e := 0; e < kpt; e++ {
			i := lane*kpt + e
			d := int(s.digits[i])
			w := (d&(s.rows-1))*t + lane
			c := uint(d) >> s.log2Rows
			s.ranks[i] += uint32(counterGet(s.counters[w], c))
		}
	}

	// Two-phase scatter, phase one: rank-ordered exchange through padded
	// block-local scratch, so phase two reads each digit's run contiguously.
	for i := 0; i < tile; i++ {
		s.exchKeys[padded(int(s.ranks[i]))] = s.keys[i]
	}

	switch s.scatter {
	case policy.ScatterGatherGlobal:
		s.scatterGatherGlobal(keysOut, validCount, bit, mask)
	default:
		s.scatterWarpAligned(keysOut, validCount)
	}

	// Values ride on the key ranks already computed; they never decode
	// digits themselves.
	if s.hasValues {
		for i := 0; i < tile; i++ {
			s.exchVals[padded(int(s.ranks[i]))] = s.vals[i]
		}
		for idx := 0; idx < validCount; idx++ {
			valsOut[s.targets[idx]] = s.exchVals[padded(idx)]
		}
	}

	// Advance the carries past this tile. Together with the subtraction in
	// rankTile this nets out to advancing each digit by its tile count.
	for d := 0; d < s.bins; d++ {
		s.carry[d] += int64(s.digitPrefix[d]) + int64(s.digitTotals[d])
	}
}

// scatterGatherGlobal is the final scatter for targets with flexible write
// coalescing: each lane gathers its own elements back out of the locally
// reordered exchange buffer (strided, so consecutive lanes touch consecutive
// addresses) and writes straight to the element's global slot. Slots at or
// beyond validCount hold only sentinels and are suppressed.
func (s *Scratch[K, V]) scatterGatherGlobal(keysOut []K, validCount int, bit uint, mask uint64) {
	t := s.threads
	for lane := 0; lane < t; lane++ {
		for e := 0; e < s.keysPerThread; e++ {
			idx := e*t + lane
			if idx >= validCount {
				continue
			}
			k := s.exchKeys[padded(idx)]
			d := int((uint64(k) >> bit) & mask)
			addr := s.carry[d] + int64(idx)
			keysOut[addr] = k
			s.targets[idx] = addr
		}
	}
}

// scatterWarpAligned is the final scatter for targets without flexible
// coalescing: for each digit, one warp-sized lane group walks the digit's
// contiguous run in the exchange buffer and flushes it with writes aligned
// to the store-transaction granularity, skipping local offsets outside the
// run or beyond validCount.
func (s *Scratch[K, V]) scatterWarpAligned(keysOut []K, validCount int) {
	w := s.warpLanes
	for d := 0; d < s.bins; d++ {
		runStart := int(s.digitPrefix[d])
		runLen := int(s.digitTotals[d])
		if runLen == 0 {
			continue
		}
		runEnd := runStart + runLen
		carry := s.carry[d]
		misalign := int((carry + int64(runStart)) & int64(w-1))
		for cur := runStart - misalign; cur < runEnd; cur += w {
			for lane := 0; lane < w; lane++ {
				lo := cur + lane
				if lo < runStart || lo >= runEnd || lo >= validCount {
					continue
				}
				addr := carry + int64(lo)
				keysOut[addr] = s.exchKeys[padded(lo)]
				s.targets[lo] = addr
			}
		}
	}
}
