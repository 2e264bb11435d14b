package radix

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/radix/policy"
)

// testPolicies returns the tuned default plus variants forcing each scatter
// strategy, so every test exercises both downsweep paths.
func testPolicies() map[string]policy.Policy {
	pols := make(map[string]policy.Policy)
	base := policy.Default()
	warp := base
	warp.Scatter = policy.ScatterWarpAligned
	gather := base
	gather.Scatter = policy.ScatterGatherGlobal
	pols["warp-aligned"] = warp
	pols["gather-global"] = gather
	return pols
}

func TestSortReversedNibble(t *testing.T) {
	// 16 keys 15..0, one digit place of width 4 covering all the bits used.
	for name, pol := range testPolicies() {
		t.Run(name, func(t *testing.T) {
			keys := make([]uint32, 16)
			for i := range keys {
				keys[i] = uint32(15 - i)
			}
			s := NewSorter[uint32, struct{}](WithPolicy(pol))
			require.NoError(t, s.SortBitRange(keys, nil, 0, 4))
			for i := range keys {
				require.Equal(t, uint32(i), keys[i])
			}
		})
	}
}

func TestSortRandomUint32(t *testing.T) {
	// 1M pseudo-random keys, 5-bit digit places: six full passes and a
	// trailing 2-bit pass. Must match the reference comparison sort
	// byte for byte.
	for name, pol := range testPolicies() {
		t.Run(name, func(t *testing.T) {
			pol.RadixBits = 5
			pol.RakingLanes = 32
			rng := rand.New(rand.NewSource(1))
			keys := make([]uint32, 1_000_000)
			for i := range keys {
				keys[i] = rng.Uint32()
			}
			want := slices.Clone(keys)
			slices.Sort(want)
			s := NewSorter[uint32, struct{}](WithPolicy(pol))
			require.NoError(t, s.Sort(keys, nil))
			require.Equal(t, want, keys)
		})
	}
}

func TestSortEdgeSizes(t *testing.T) {
	pol := policy.Default()
	tile := pol.TileElements()
	sizes := []int{0, 1, 2, 3, tile - 1, tile, tile + 1, 7*tile + 13}
	for name, pol := range testPolicies() {
		t.Run(name, func(t *testing.T) {
			for _, n := range sizes {
				rng := rand.New(rand.NewSource(int64(n)))
				keys := make([]uint32, n)
				for i := range keys {
					keys[i] = rng.Uint32() & 0xFFFF
				}
				want := slices.Clone(keys)
				slices.Sort(want)
				require.NoError(t, Sort(keys, WithPolicy(pol)), "n=%d", n)
				require.Equal(t, want, keys, "n=%d", n)
			}
		})
	}
}

func TestSortKeyWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 10_000

	keys8 := make([]uint8, n)
	for i := range keys8 {
		keys8[i] = uint8(rng.Uint32())
	}
	want8 := slices.Clone(keys8)
	slices.Sort(want8)
	require.NoError(t, Sort(keys8))
	require.Equal(t, want8, keys8)

	keys16 := make([]uint16, n)
	for i := range keys16 {
		keys16[i] = uint16(rng.Uint32())
	}
	want16 := slices.Clone(keys16)
	slices.Sort(want16)
	require.NoError(t, Sort(keys16))
	require.Equal(t, want16, keys16)

	keys64 := make([]uint64, n)
	for i := range keys64 {
		keys64[i] = rng.Uint64()
	}
	want64 := slices.Clone(keys64)
	slices.Sort(want64)
	require.NoError(t, Sort(keys64))
	require.Equal(t, want64, keys64)
}

func TestSortAllEqual(t *testing.T) {
	keys := make([]uint32, 50_000)
	for i := range keys {
		keys[i] = 0xDEADBEEF
	}
	require.NoError(t, Sort(keys))
	for _, k := range keys {
		require.Equal(t, uint32(0xDEADBEEF), k)
	}
}

func TestSortPairsStability(t *testing.T) {
	// Values are the original indices; after a full sort, pairs with equal
	// keys must keep ascending indices.
	for name, pol := range testPolicies() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			n := 100_000
			keys := make([]uint32, n)
			values := make([]uint32, n)
			for i := range keys {
				keys[i] = rng.Uint32() & 0xFF // few distinct keys, many ties
				values[i] = uint32(i)
			}
			require.NoError(t, SortPairs(keys, values, WithPolicy(pol)))
			for i := 1; i < n; i++ {
				require.LessOrEqual(t, keys[i-1], keys[i])
				if keys[i-1] == keys[i] {
					require.Less(t, values[i-1], values[i],
						"pair order broken at %d for key %d", i, keys[i])
				}
			}
		})
	}
}

func TestSinglePassStability(t *testing.T) {
	// One digit place only: elements equal under the bit window must keep
	// their input order even though their other bits differ.
	rng := rand.New(rand.NewSource(9))
	n := 10_000
	keys := make([]uint32, n)
	values := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
		values[i] = uint32(i)
	}
	require.NoError(t, SortPairsBitRange(keys, values, 8, 12))
	prevDigit := uint32(0)
	lastIndexForDigit := make(map[uint32]uint32)
	for i := 0; i < n; i++ {
		digit := (keys[i] >> 8) & 0xF
		require.GreaterOrEqual(t, digit, prevDigit)
		prevDigit = digit
		if last, ok := lastIndexForDigit[digit]; ok {
			require.Greater(t, values[i], last)
		}
		lastIndexForDigit[digit] = values[i]
	}
}

func TestEarlyExitIdempotence(t *testing.T) {
	// Keys whose high digit places are constant: those passes see a single
	// occupied bin. Output must be byte-identical with early exit on or off.
	rng := rand.New(rand.NewSource(11))
	n := 64_000
	original := make([]uint32, n)
	for i := range original {
		original[i] = 0xAB000000 | (rng.Uint32() & 0xFFF)
	}

	pol := policy.Default()
	pol.EarlyExit = true
	withExit := slices.Clone(original)
	require.NoError(t, Sort(withExit, WithPolicy(pol)))

	pol.EarlyExit = false
	withoutExit := slices.Clone(original)
	require.NoError(t, Sort(withoutExit, WithPolicy(pol)))

	require.Equal(t, withoutExit, withExit)
}

func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := 200_000
	original := make([]uint32, n)
	for i := range original {
		original[i] = rng.Uint32()
	}
	first := slices.Clone(original)
	require.NoError(t, Sort(first))
	second := slices.Clone(original)
	require.NoError(t, Sort(second))
	require.Equal(t, first, second)
}

func TestGridConfigurations(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	n := 150_000
	original := make([]uint32, n)
	for i := range original {
		original[i] = rng.Uint32()
	}
	want := slices.Clone(original)
	slices.Sort(want)

	// Fixed grid sizes, including a single block and more blocks than CPUs.
	for _, gridSize := range []int{1, 3, 64} {
		keys := slices.Clone(original)
		require.NoError(t, Sort(keys, WithGridSize(gridSize)), "gridSize=%d", gridSize)
		require.Equal(t, want, keys, "gridSize=%d", gridSize)
	}

	// Blocks run inline, in order: result must not change.
	keys := slices.Clone(original)
	require.NoError(t, Sort(keys, WithMaxConcurrentBlocks(0)))
	require.Equal(t, want, keys)
}

func TestSortBitRangeValidation(t *testing.T) {
	keys := []uint32{3, 2, 1}
	require.Error(t, SortBitRange(keys, -1, 4))
	require.Error(t, SortBitRange(keys, 4, 2))
	require.Error(t, SortBitRange(keys, 0, 33))
	// Empty window is a no-op, not an error.
	require.NoError(t, SortBitRange(keys, 8, 8))
	require.Equal(t, []uint32{3, 2, 1}, keys)
}

func TestSortPairsLengthMismatch(t *testing.T) {
	keys := []uint32{3, 2, 1}
	values := []uint32{0, 1}
	require.Error(t, SortPairs(keys, values))
}

func TestDoubleBuffer(t *testing.T) {
	keys := []uint32{5, 4, 3}
	db := NewDoubleBuffer[uint32, struct{}](keys, nil)
	require.Equal(t, 0, db.Selector())
	cur, _ := db.Current()
	require.Equal(t, keys, cur)
	alt, _ := db.Alternate()
	require.Nil(t, alt)

	db.EnsureAlternate()
	alt, _ = db.Alternate()
	require.Len(t, alt, 3)

	db.Flip()
	require.Equal(t, 1, db.Selector())
	cur, _ = db.Current()
	require.Len(t, cur, 3)
	require.Equal(t, keys, db.Keys(0))
	require.Equal(t, keys, db.Keys(2)) // selects mod 2

	db.Flip()
	require.Equal(t, 0, db.Selector())
}

func TestSortDoubleBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	n := 30_000
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
	}
	want := slices.Clone(keys)
	slices.Sort(want)

	s := NewSorter[uint32, struct{}]()
	db := NewDoubleBuffer[uint32, struct{}](keys, nil)
	require.NoError(t, s.SortDoubleBuffer(db, 0, 32))
	cur, _ := db.Current()
	require.Equal(t, want, cur)

	// The buffer pair is reusable for another sort.
	for i := range cur {
		cur[i] = rng.Uint32()
	}
	want = slices.Clone(cur)
	slices.Sort(want)
	require.NoError(t, s.SortDoubleBuffer(db, 0, 32))
	cur, _ = db.Current()
	require.Equal(t, want, cur)
}

func BenchmarkSortUint32(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	original := make([]uint32, 1_000_000)
	for i := range original {
		original[i] = rng.Uint32()
	}
	keys := make([]uint32, len(original))
	s := NewSorter[uint32, struct{}]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(keys, original)
		if err := s.Sort(keys, nil); err != nil {
			b.Fatal(err)
		}
	}
}
