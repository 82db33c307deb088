//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread affinity through sched_setaffinity(2).

package affinity

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	if cpuID < 0 || cpuID >= len(set)*64 {
		return api.NewError(api.ErrCodeInvalidArgument, "sched_setaffinity", api.ErrInvalidArgument).
			WithContext("cpu", cpuID)
	}
	set.Zero()
	set.Set(cpuID)
	// pid 0 is the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.NewError(api.ErrCodeSyscall, "sched_setaffinity", err).WithContext("cpu", cpuID)
	}
	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
