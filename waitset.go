// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"sync/atomic"
	"time"

	"code.hybscloud.com/ipcbus/internal/futex"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Event-flag bits, disjoint within a 32-bit word.
const (
	flagHasData      uint32 = 0x01
	flagHasSpace     uint32 = 0x02
	flagHasFreeChunk uint32 = 0x04
)

// waitForFlags blocks until any bit in mask is set in *word, or timeout
// elapses. Uses the futex slow path; a load already satisfying mask returns
// immediately without a syscall.
func waitForFlags(word *atomic.Uint32, mask uint32, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		v := word.Load()
		if v&mask != 0 {
			return nil
		}
		remaining := timeout
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return iox.ErrWouldBlock
			}
		}
		if err := futex.Wait(word, v, remaining); err != nil {
			return iox.ErrWouldBlock
		}
	}
}

// pollForFlags busy-waits for any bit in mask to be set in *word, using
// spin.Yield between checks instead of a syscall — grounded on the
// ecosystem bounded pool's own blocking-get/put busy-wait idiom.
func pollForFlags(word *atomic.Uint32, mask uint32, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if word.Load()&mask != 0 {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return iox.ErrWouldBlock
		}
		spin.Yield()
	}
}

// setFlagsAndWake ORs mask into *word and, if wake, wakes all parked waiters.
func setFlagsAndWake(word *atomic.Uint32, mask uint32, wake bool) {
	sw := spin.Wait{}
	for {
		old := word.Load()
		if word.CompareAndSwap(old, old|mask) {
			break
		}
		sw.Once()
	}
	if wake {
		futex.Wake(word, 1<<30)
	}
}

// clearFlags ANDs ^mask into *word.
func clearFlags(word *atomic.Uint32, mask uint32) {
	sw := spin.Wait{}
	for {
		old := word.Load()
		if word.CompareAndSwap(old, old&^mask) {
			break
		}
		sw.Once()
	}
}

// checkFlags is a read-only test of word against mask.
func checkFlags(word *atomic.Uint32, mask uint32) bool {
	return word.Load()&mask != 0
}
