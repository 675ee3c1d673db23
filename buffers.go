// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"code.hybscloud.com/ipcbus/internal"
)

// CacheLineSize is the CPU L1 cache line size for the current architecture,
// detected at compile time via internal's per-arch build-tagged constants.
// The control block, chunk header, and channel header all pad to this
// boundary to avoid false sharing between concurrent writers.
const CacheLineSize = internal.CacheLineSize

// alignToCacheLine rounds size up to the next multiple of CacheLineSize.
func alignToCacheLine(size uint64) uint64 {
	align := uint64(CacheLineSize)
	return (size + align - 1) / align * align
}

// alignToShmSize rounds size up to the large-page boundary used for
// segment sizing.
func alignToShmSize(size uint64) uint64 {
	return (size + shmAlignment - 1) / shmAlignment * shmAlignment
}
