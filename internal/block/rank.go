package block

// The block-wide rank scan: a raking reduce-then-scan over the packed
// counter grid.
//
// A small set of raking lanes each serially reduce a contiguous segment of
// the counter words; the per-lane partials go through a short doubling scan
// (the raking-lane count never exceeds one warp, so a single warpscan level
// suffices); each lane then re-walks its segment turning counts into
// exclusive prefixes seeded with its own scanned partial. Two serial sweeps
// per lane buy far less scratch contention than a one-counter-per-lane
// parallel scan would.

// rankTile converts the packed per-lane counts accumulated for the current
// tile into exclusive prefixes, publishes per-digit totals and prefixes,
// and folds this tile's digit prefixes into the bin carries so that the
// scatter can address output as carry[digit]+rank.
//
// On return, counters[row*threads+lane] holds, for each packed sub-lane,
// the digit-grouped block-exclusive prefix for (digit, lane); an element's
// final local rank is its recorded lane-exclusive prefix plus that value.
func (s *Scratch[K, V]) rankTile() {
	words := len(s.counters)
	seg := words / s.rakingLanes
	rl := s.rakingLanes

	// Rake-reduce: one packed partial per raking lane.
	for l := 0; l < rl; l++ {
		var sum uint64
		for w := l * seg; w < (l+1)*seg; w++ {
			sum += s.counters[w]
		}
		s.rakingPartials[l] = sum
	}

	// Warpscan across the raking lanes. The lower half of the table stays
	// zero so the doubling steps need no bounds checks; iterating lanes
	// high-to-low reproduces the lockstep read-before-write order.
	for l := 0; l < rl; l++ {
		s.warpscan[l] = 0
		s.warpscan[rl+l] = s.rakingPartials[l]
	}
	for off := 1; off < rl; off <<= 1 {
		for l := rl - 1; l >= 0; l-- {
			s.warpscan[rl+l] += s.warpscan[rl+l-off]
		}
	}
	total := s.warpscan[2*rl-1]

	// Rake-scan: re-walk each segment with the lane's exclusive prefix as
	// the running base, leaving exclusive prefixes in place.
	for l := 0; l < rl; l++ {
		running := s.warpscan[rl+l] - s.rakingPartials[l]
		for w := l * seg; w < (l+1)*seg; w++ {
			c := s.counters[w]
			s.counters[w] = running
			running += c
		}
	}

	// Per-digit inclusive totals and raw (within-sub-lane) prefixes, read
	// off the row boundaries of the scanned grid.
	t := s.threads
	for d := 0; d < s.bins; d++ {
		r := d & (s.rows - 1)
		c := uint(d) >> s.log2Rows
		start := counterGet(s.counters[r*t], c)
		var end uint64
		if r == s.rows-1 {
			end = counterGet(total, c)
		} else {
			end = counterGet(s.counters[(r+1)*t], c)
		}
		s.digitTotals[d] = uint32(end - start)
		s.digitPrefix[d] = uint32(start)
	}

	// Exclusive prefix of the sub-lane totals, folded as one packed add
	// into every counter word and into the digit prefixes. After this the
	// grid holds digit-grouped prefixes for the whole block.
	var base, run uint64
	for c := uint(0); int(c) < packRatio; c++ {
		base |= counterPut(run, c)
		run += counterGet(total, c)
	}
	for w := 0; w < words; w++ {
		s.counters[w] += base
	}
	for d := 0; d < s.bins; d++ {
		c := uint(d) >> s.log2Rows
		s.digitPrefix[d] += uint32(counterGet(base, c))
	}

	// Retire this tile's prefixes into the carries before any rank is
	// consumed; the advance by the inclusive totals happens once the tile
	// has been scattered (see PartitionTile).
	for d := 0; d < s.bins; d++ {
		s.carry[d] -= int64(s.digitPrefix[d])
	}
}
