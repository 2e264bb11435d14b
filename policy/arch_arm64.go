//go:build arm64

package policy

func init() {
	// NEON is architectural on ARMv8, no feature probe needed.
	currentArch = ArchARM64
}
