// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// CPU pinning for accept loops. Platform-specific implementations live in
// affinity_linux.go and affinity_stub.go.

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and binds that thread to
// cpuID. The thread stays locked; it is discarded when the goroutine exits,
// so the restricted mask never reaches other goroutines.
func Pin(cpuID int) error {
	runtime.LockOSThread()
	return setAffinityPlatform(cpuID)
}

// ForLoop maps an accept loop index onto the available CPUs.
func ForLoop(idx int) int {
	n := runtime.NumCPU()
	if idx < 0 {
		idx = -idx
	}
	return idx % n
}
