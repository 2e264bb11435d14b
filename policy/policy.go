// Package policy holds the per-architecture tuning tables for the radix
// partition engine.
//
// A Policy is a pure configuration value: digit width, block geometry,
// scratch-memory packing and the scatter strategy used by the downsweep.
// It is resolved once at startup (or overridden by the caller) and never
// mutated while a sort is running.
package policy

import (
	"fmt"

	"github.com/pkg/errors"
)

// ScatterStrategy selects how the downsweep flushes a tile from the
// block-local exchange buffer to the output buffer.
type ScatterStrategy int

const (
	// ScatterWarpAligned flushes each digit's contiguous run with
	// transaction-aligned warp-sized writes. Preferred on targets without
	// flexible write coalescing.
	ScatterWarpAligned ScatterStrategy = iota

	// ScatterGatherGlobal has each lane gather its own element back out of
	// the exchange buffer and write it directly to its global position.
	ScatterGatherGlobal
)

// String returns a human-readable name for the scatter strategy.
func (s ScatterStrategy) String() string {
	switch s {
	case ScatterWarpAligned:
		return "warp-aligned"
	case ScatterGatherGlobal:
		return "gather-global"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// PackRatio is the number of digit counters packed into one 64-bit scratch
// word: 4 counters of 16 bits each. A tile never holds more than 1<<16
// elements, so per-digit, per-lane counts cannot overflow a 16-bit lane.
const PackRatio = 4

// CounterBits is the width of one packed counter lane.
const CounterBits = 16

// Policy is the tuning-parameter set for one target class. All fields are
// fixed for the lifetime of a sort invocation.
type Policy struct {
	// RadixBits is the digit width: each pass buckets on 1<<RadixBits bins.
	RadixBits int

	// BlockThreads is the number of lanes per block.
	BlockThreads int

	// KeysPerThread is the vector-load width: keys loaded per lane per tile.
	KeysPerThread int

	// RakingLanes is the number of lanes that serially rake the packed
	// counter grid during the block-wide scan. Must be a power of two that
	// divides CounterRows()*BlockThreads.
	RakingLanes int

	// WarpLanes is the lockstep group size used by the warp-aligned scatter
	// and the minimum store-transaction granularity (in elements).
	WarpLanes int

	// Scatter selects the final-scatter strategy.
	Scatter ScatterStrategy

	// EarlyExit skips a pass's downsweep (and the buffer flip) when the
	// upsweep histogram shows a single occupied bin.
	EarlyExit bool

	// Oversubscription multiplies the device's concurrent-block capacity
	// when choosing the grid size, to hide latency.
	Oversubscription int
}

// Bins returns the number of digit buckets per pass.
func (p *Policy) Bins() int { return 1 << p.RadixBits }

// TileElements returns the number of keys processed per block per tile.
func (p *Policy) TileElements() int { return p.BlockThreads * p.KeysPerThread }

// CounterRows returns the number of packed-counter rows: each row is one
// 64-bit word per lane holding PackRatio digit counters.
func (p *Policy) CounterRows() int { return p.Bins() / PackRatio }

// Validate checks the structural constraints the downsweep depends on.
// Violations here would mean silent numeric corruption in the inner loops,
// which never re-check them.
func (p *Policy) Validate() error {
	if p.RadixBits < 2 || p.RadixBits > 8 {
		return errors.Errorf("policy: RadixBits=%d out of supported range [2,8]", p.RadixBits)
	}
	if p.BlockThreads <= 0 || p.BlockThreads&(p.BlockThreads-1) != 0 {
		return errors.Errorf("policy: BlockThreads=%d must be a positive power of two", p.BlockThreads)
	}
	if p.KeysPerThread <= 0 {
		return errors.Errorf("policy: KeysPerThread=%d must be positive", p.KeysPerThread)
	}
	if p.TileElements() >= 1<<CounterBits {
		return errors.Errorf("policy: tile of %d elements overflows the %d-bit packed counters",
			p.TileElements(), CounterBits)
	}
	words := p.CounterRows() * p.BlockThreads
	if p.RakingLanes <= 0 || p.RakingLanes&(p.RakingLanes-1) != 0 {
		return errors.Errorf("policy: RakingLanes=%d must be a positive power of two", p.RakingLanes)
	}
	if words%p.RakingLanes != 0 {
		return errors.Errorf("policy: RakingLanes=%d does not divide the %d counter words", p.RakingLanes, words)
	}
	if p.WarpLanes <= 0 || p.WarpLanes&(p.WarpLanes-1) != 0 {
		return errors.Errorf("policy: WarpLanes=%d must be a positive power of two", p.WarpLanes)
	}
	if p.Oversubscription <= 0 {
		return errors.Errorf("policy: Oversubscription=%d must be positive", p.Oversubscription)
	}
	if p.Scatter != ScatterWarpAligned && p.Scatter != ScatterGatherGlobal {
		return errors.Errorf("policy: unknown scatter strategy %d", int(p.Scatter))
	}
	return nil
}

// ForArch returns the tuned policy for the given target class.
func ForArch(arch Arch) Policy {
	if p, ok := tuning[arch]; ok {
		return p
	}
	return tuning[ArchScalar]
}

// Default returns the tuned policy for the architecture detected at startup.
func Default() Policy {
	return ForArch(Current())
}

// tuning maps each target class to its constants. The scalar baseline keeps
// tiles small and uses the aligned scatter; wider targets take 5-bit digits
// and the gather-then-global scatter, which coalesces well there.
var tuning = map[Arch]Policy{
	ArchScalar: {
		RadixBits:        4,
		BlockThreads:     32,
		KeysPerThread:    4,
		RakingLanes:      8,
		WarpLanes:        16,
		Scatter:          ScatterWarpAligned,
		EarlyExit:        true,
		Oversubscription: 2,
	},
	ArchAMD64: {
		RadixBits:        5,
		BlockThreads:     64,
		KeysPerThread:    4,
		RakingLanes:      32,
		WarpLanes:        32,
		Scatter:          ScatterWarpAligned,
		EarlyExit:        true,
		Oversubscription: 2,
	},
	ArchAMD64AVX2: {
		RadixBits:        5,
		BlockThreads:     64,
		KeysPerThread:    8,
		RakingLanes:      32,
		WarpLanes:        32,
		Scatter:          ScatterGatherGlobal,
		EarlyExit:        true,
		Oversubscription: 4,
	},
	ArchARM64: {
		RadixBits:        5,
		BlockThreads:     64,
		KeysPerThread:    4,
		RakingLanes:      32,
		WarpLanes:        32,
		Scatter:          ScatterGatherGlobal,
		EarlyExit:        true,
		Oversubscription: 4,
	},
}
