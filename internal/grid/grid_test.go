package grid

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLaunchRunsEveryBlock(t *testing.T) {
	g := New()
	g.SetMaxConcurrentBlocks(4)
	const numBlocks = 100
	var runs [numBlocks]atomic.Int32
	var running, peak atomic.Int32
	g.Launch(numBlocks, func(b int) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		runs[b].Add(1)
		running.Add(-1)
	})
	for b := range runs {
		require.Equal(t, int32(1), runs[b].Load(), "block %d ran %d times", b, runs[b].Load())
	}
	require.LessOrEqual(t, peak.Load(), int32(4))
}

func TestLaunchInline(t *testing.T) {
	g := New()
	g.SetMaxConcurrentBlocks(0)
	var order []int
	g.Launch(5, func(b int) { order = append(order, b) })
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestGridSize(t *testing.T) {
	g := New()
	g.SetMaxConcurrentBlocks(8)
	require.Equal(t, 16, g.GridSize(1000, 2))
	require.Equal(t, 5, g.GridSize(5, 2))  // capped at one block per tile
	require.Equal(t, 1, g.GridSize(0, 2))  // floored at one
	g.SetMaxConcurrentBlocks(0)            // inline still launches real blocks
	require.GreaterOrEqual(t, g.GridSize(1000, 1), 1)
}
