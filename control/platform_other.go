//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Debug probes for BSD-family platforms.

package control

import (
	"runtime"
)

// RegisterPlatformProbes sets platform debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.coalescing", func() any {
		switch runtime.GOOS {
		case "darwin", "freebsd":
			return "TCP_NOPUSH"
		default:
			return "none"
		}
	})
	dp.RegisterProbe("platform.coalescing_inherited", func() any {
		return false
	})
}
