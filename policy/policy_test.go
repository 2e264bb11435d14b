package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTuningTablesValidate(t *testing.T) {
	for arch, pol := range tuning {
		require.NoError(t, pol.Validate(), "tuning for %s", arch)
	}
}

func TestForArchFallsBackToScalar(t *testing.T) {
	require.Equal(t, ForArch(ArchScalar), ForArch(Arch(99)))
}

func TestValidateRejections(t *testing.T) {
	base := ForArch(ArchScalar)

	p := base
	p.RadixBits = 1
	require.Error(t, p.Validate())

	p = base
	p.RadixBits = 9
	require.Error(t, p.Validate())

	p = base
	p.BlockThreads = 48 // not a power of two
	require.Error(t, p.Validate())

	p = base
	p.KeysPerThread = 0
	require.Error(t, p.Validate())

	p = base
	p.BlockThreads = 8192
	p.KeysPerThread = 8 // 65536-element tile overflows the packed counters
	require.Error(t, p.Validate())

	p = base
	p.RakingLanes = 3
	require.Error(t, p.Validate())

	p = base
	p.RakingLanes = base.CounterRows() * base.BlockThreads * 2 // cannot divide the words
	require.Error(t, p.Validate())

	p = base
	p.WarpLanes = 0
	require.Error(t, p.Validate())

	p = base
	p.Oversubscription = 0
	require.Error(t, p.Validate())

	p = base
	p.Scatter = ScatterStrategy(7)
	require.Error(t, p.Validate())
}

func TestGeometryDerivations(t *testing.T) {
	p := ForArch(ArchScalar)
	require.Equal(t, 1<<p.RadixBits, p.Bins())
	require.Equal(t, p.BlockThreads*p.KeysPerThread, p.TileElements())
	require.Equal(t, p.Bins()/PackRatio, p.CounterRows())
}

func TestStrategyStrings(t *testing.T) {
	require.Equal(t, "warp-aligned", ScatterWarpAligned.String())
	require.Equal(t, "gather-global", ScatterGatherGlobal.String())
	require.NotEmpty(t, Current().String())
}
