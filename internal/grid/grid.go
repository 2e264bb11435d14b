// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package grid schedules the blocks of a pass onto the machine.
//
// It models the device side of a kernel launch: a grid of independent
// blocks, of which only a bounded number run concurrently. Blocks share no
// state and may not assume anything about each other's progress; Launch only
// guarantees that every block has finished when it returns.
package grid

import (
	"runtime"
	"sync"
)

// Grid is a bounded scheduler for block work. The zero value is not usable;
// call New.
type Grid struct {
	// maxConcurrentBlocks is a soft target on the number of blocks in
	// flight. The actual goroutine count can run a little above it while
	// blocks retire.
	maxConcurrentBlocks int

	mu         sync.Mutex
	cond       sync.Cond // Signaled whenever numRunning decreases.
	numRunning int
}

// New returns a Grid whose concurrent-block capacity defaults to the number
// of CPUs.
func New() *Grid {
	g := &Grid{maxConcurrentBlocks: runtime.NumCPU()}
	g.cond = sync.Cond{L: &g.mu}
	return g
}

// MaxConcurrentBlocks returns the soft limit on blocks in flight.
// 0 disables concurrency (blocks run inline, in order); negative means
// unlimited.
func (g *Grid) MaxConcurrentBlocks() int {
	return g.maxConcurrentBlocks
}

// SetMaxConcurrentBlocks changes the concurrency limit. Only call between
// launches; changing it mid-launch is undefined.
func (g *Grid) SetMaxConcurrentBlocks(n int) {
	g.maxConcurrentBlocks = n
}

// GridSize returns the block count to launch for the given tile count and
// oversubscription multiplier: capacity times the multiplier, capped at one
// block per tile and floored at one.
func (g *Grid) GridSize(numTiles, oversubscription int) int {
	capacity := g.maxConcurrentBlocks
	if capacity <= 0 {
		capacity = runtime.NumCPU()
	}
	n := capacity * oversubscription
	if n > numTiles {
		n = numTiles
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Launch runs fn once per block index in [0, numBlocks) and returns when
// every block has finished. Blocks are started in index order but complete
// in any order.
func (g *Grid) Launch(numBlocks int, fn func(b int)) {
	if g.maxConcurrentBlocks == 0 {
		for b := 0; b < numBlocks; b++ {
			fn(b)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(numBlocks)
	for b := 0; b < numBlocks; b++ {
		g.waitToStart(func(b int) func() {
			return func() {
				defer wg.Done()
				fn(b)
			}
		}(b))
	}
	wg.Wait()
}

// waitToStart blocks until a slot frees up, then runs task in its own
// goroutine, keeping tabs on numRunning.
func (g *Grid) waitToStart(task func()) {
	if g.maxConcurrentBlocks < 0 {
		go task()
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.numRunning >= g.maxConcurrentBlocks {
		g.cond.Wait()
	}
	g.numRunning++
	go func() {
		task()
		g.mu.Lock()
		g.numRunning--
		g.cond.Signal()
		g.mu.Unlock()
	}()
}
