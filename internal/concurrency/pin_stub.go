//go:build !linux
// +build !linux

// File: internal/concurrency/pin_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"runtime"

	"github.com/momentics/hioload-tls/api"
)

// PinCurrentThread only locks the OS thread on this platform.
func PinCurrentThread(cpu int) error {
	runtime.LockOSThread()
	if cpu >= 0 {
		return api.ErrNotSupported
	}
	return nil
}

// UnpinCurrentThread releases the OS thread lock.
func UnpinCurrentThread() { runtime.UnlockOSThread() }

// AllowedCPUs lists every CPU reported by the runtime.
func AllowedCPUs() []int {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
