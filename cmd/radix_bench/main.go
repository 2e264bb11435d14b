// radix_bench exercises the radix sort engine end to end: it generates
// pseudo-random keys, sorts them, verifies the result against the standard
// library's comparison sort, and reports throughput per input size.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/radix"
	"github.com/gomlx/radix/policy"
)

var (
	flagSizes = flag.String("sizes", "1000,100000,1000000,10000000",
		"Comma-separated input sizes to benchmark.")
	flagReps     = flag.Int("reps", 5, "Repetitions per size; the best time is reported.")
	flagSeed     = flag.Int64("seed", 42, "Seed for the pseudo-random key generator.")
	flagPairs    = flag.Bool("pairs", false, "Sort key/value pairs instead of keys only.")
	flagVerify   = flag.Bool("verify", true, "Check every result against the stdlib comparison sort.")
	flagGridSize = flag.Int("grid_size", 0, "Fixed grid size (blocks per pass); 0 derives it from occupancy.")
	flagScatter  = flag.String("scatter", "", "Force a scatter strategy: 'warp' or 'gather'; empty keeps the tuned choice.")
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	rowStyle       = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(1, 2, 0, 2)
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	pol := policy.Default()
	switch *flagScatter {
	case "":
	case "warp":
		pol.Scatter = policy.ScatterWarpAligned
	case "gather":
		pol.Scatter = policy.ScatterGatherGlobal
	default:
		klog.Errorf("Unknown -scatter value %q; want 'warp' or 'gather'.", *flagScatter)
		os.Exit(1)
	}

	var sizes []int
	for _, s := range strings.Split(*flagSizes, ",") {
		sizes = append(sizes, must.M1(strconv.Atoi(strings.TrimSpace(s))))
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("radix sort -- %s, %s scatter, %d-bit digits",
		policy.Current(), pol.Scatter, pol.RadixBits)))

	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 {
				return headerRowStyle
			}
			return rowStyle
		}).
		Headers("Keys", "Best time", "Throughput", "Verified")

	for _, n := range sizes {
		best, ok := runSize(n, pol)
		verified := "-"
		if *flagVerify {
			verified = "yes"
			if !ok {
				verified = "FAILED"
			}
		}
		table.Row(
			humanize.Comma(int64(n)),
			best.Round(time.Microsecond).String(),
			fmt.Sprintf("%s keys/s", humanize.SI(float64(n)/best.Seconds(), "")),
			verified,
		)
	}
	fmt.Println(table.Render())
}

// runSize benchmarks one input size, returning the best wall time and
// whether every repetition verified against the reference sort.
func runSize(n int, pol policy.Policy) (best time.Duration, ok bool) {
	rng := rand.New(rand.NewSource(*flagSeed))
	original := make([]uint32, n)
	for i := range original {
		original[i] = rng.Uint32()
	}
	var reference []uint32
	if *flagVerify {
		reference = slices.Clone(original)
		slices.Sort(reference)
	}

	keys := make([]uint32, n)
	values := make([]uint32, n)
	sorter := radix.NewSorter[uint32, uint32](
		radix.WithPolicy(pol), radix.WithGridSize(*flagGridSize))

	bar := progressbar.Default(int64(*flagReps), fmt.Sprintf("%s keys", humanize.Comma(int64(n))))
	ok = true
	best = time.Duration(1<<63 - 1)
	for rep := 0; rep < *flagReps; rep++ {
		copy(keys, original)
		var vals []uint32
		if *flagPairs {
			for i := range values {
				values[i] = uint32(i)
			}
			vals = values
		}
		start := time.Now()
		must.M(sorter.Sort(keys, vals))
		elapsed := time.Since(start)
		if elapsed < best {
			best = elapsed
		}
		if *flagVerify && !slices.Equal(keys, reference) {
			ok = false
		}
		must.M(bar.Add(1))
	}
	must.M(bar.Finish())
	return best, ok
}
