// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

// Package futex wraps the Linux futex(2) syscall for cross-process park/wake
// on a 32-bit word living in shared memory.
package futex

import (
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Not the _PRIVATE futex operations: the word lives in memory shared across
// process address spaces, so the kernel must hash on the physical page
// rather than the calling process's virtual address space.
const (
	opWait = 0 // FUTEX_WAIT
	opWake = 1 // FUTEX_WAKE
)

// Wait blocks while *addr == expected, for at most timeout (zero means
// wait indefinitely). Returns nil if woken or the value no longer matches;
// returns syscall.ETIMEDOUT on timeout.
func Wait(addr *atomic.Uint32, expected uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(opWait),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0, syscall.EAGAIN, syscall.EINTR:
		return nil
	case syscall.ETIMEDOUT:
		return syscall.ETIMEDOUT
	default:
		return errno
	}
}

// Wake wakes up to n waiters parked on addr. Returns the number woken.
func Wake(addr *atomic.Uint32, n int) int {
	r, _, _ := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(opWake),
		uintptr(n),
		0, 0, 0,
	)
	return int(r)
}
