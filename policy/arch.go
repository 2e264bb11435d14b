package policy

// Arch is the target class used to key the tuning tables. It abstracts the
// hardware generation: the engine only cares about which set of constants
// and which scatter strategy a class prefers, not about individual models.
type Arch int

const (
	// ArchScalar is the portable baseline, used when no better class is
	// detected.
	ArchScalar Arch = iota

	// ArchAMD64 is the x86-64 baseline (SSE2).
	ArchAMD64

	// ArchAMD64AVX2 is x86-64 with AVX2: wider loads and flexible write
	// coalescing.
	ArchAMD64AVX2

	// ArchARM64 is ARMv8 with NEON.
	ArchARM64
)

// String returns a human-readable name for the target class.
func (a Arch) String() string {
	switch a {
	case ArchScalar:
		return "scalar"
	case ArchAMD64:
		return "amd64"
	case ArchAMD64AVX2:
		return "amd64-avx2"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// currentArch is resolved by init() in the arch_*.go files.
var currentArch = ArchScalar

// Current returns the target class detected for this process.
func Current() Arch {
	return currentArch
}
