package block

import "golang.org/x/exp/constraints"

// UpsweepRange counts, for one block's contiguous element range, how many
// keys fall into each bin of the current digit place. counts must have one
// slot per bin and arrive zeroed; it is this block's private row of the
// pass histogram, so no synchronization is involved.
func UpsweepRange[K constraints.Unsigned](keys []K, lo, hi int, bit uint, mask uint64, counts []int64) {
	// Unrolled by four; the tail loops.
	i := lo
	for ; i+4 <= hi; i += 4 {
		counts[(uint64(keys[i])>>bit)&mask]++
		counts[(uint64(keys[i+1])>>bit)&mask]++
		counts[(uint64(keys[i+2])>>bit)&mask]++
		counts[(uint64(keys[i+3])>>bit)&mask]++
	}
	for ; i < hi; i++ {
		counts[(uint64(keys[i])>>bit)&mask]++
	}
}
