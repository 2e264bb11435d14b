//go:build amd64

package policy

import "golang.org/x/sys/cpu"

func init() {
	if cpu.X86.HasAVX2 {
		currentArch = ArchAMD64AVX2
	} else {
		currentArch = ArchAMD64
	}
}
