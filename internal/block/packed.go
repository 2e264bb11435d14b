package block

import "github.com/gomlx/radix/policy"

// Packed counter words: policy.PackRatio digit counters of policy.CounterBits
// bits each, packed into one uint64 so that the raking scan moves several
// counters per scratch-memory access.
//
// Counts are bounded by the tile size, so lanes never carry into each other;
// plain uint64 addition is a lane-wise add. The tuning policy guarantees the
// bound (see policy.Policy.Validate), the hot path does not re-check it.

const (
	packRatio   = policy.PackRatio
	counterMask = (1 << policy.CounterBits) - 1
)

// counterOne returns the packed word that increments counter lane c by one.
func counterOne(c uint) uint64 {
	return 1 << (c * policy.CounterBits)
}

// counterGet extracts counter lane c from a packed word.
func counterGet(word uint64, c uint) uint64 {
	return (word >> (c * policy.CounterBits)) & counterMask
}

// counterPut returns v positioned in counter lane c.
func counterPut(v uint64, c uint) uint64 {
	return (v & counterMask) << (c * policy.CounterBits)
}
