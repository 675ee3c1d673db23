// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"sync/atomic"
	"unsafe"
)

// maxChannelsCeiling is the widest bitmask a ready_mask can ever address
// (SegmentModeExtend's 62 usable bits). Snapshot storage is sized to this
// ceiling regardless of the segment's actual mode: a single uint64-wide mask
// costs nothing extra compared to three distinct struct variants.
const maxChannelsCeiling = 62

// subscriberSnapshot is the compact record publishers iterate without
// locks: a count plus up to maxChannelsCeiling active queue indices, and a
// version bumped on every registration-state change.
type subscriberSnapshot struct {
	count        atomic.Uint32
	version      atomic.Uint32
	queueIndices [maxChannelsCeiling]uint32
}

// chunkPoolState is the control block's view of the chunk pool's free list:
// a head index into the chunk array's next_free_index chain, and the
// remaining free count (advisory only).
type chunkPoolState struct {
	freeHead   atomic.Uint32
	freeCount  atomic.Uint32
	eventFlags atomic.Uint32
}

// controlBlock is the fixed-layout header at offset 0 of every segment.
// It is never allocated on the Go heap directly — a *controlBlock is always
// obtained by casting the address of a segment's byte slice, so its field
// layout here is load-bearing: every attached process must be running code
// built from the same struct definition.
type controlBlock struct {
	magic         atomic.Uint32
	version       atomic.Uint32
	mode          uint32
	maxChunks     uint32
	chunkSize     uint32
	maxChannels   uint32
	queueCapacity uint32
	attachedCount atomic.Uint32

	_ [CacheLineSize]byte

	pool chunkPoolState

	_ [CacheLineSize]byte

	readyMask           atomic.Uint64
	activeSnapshotIndex atomic.Uint32
	registrySeq         atomic.Uint32
	subscriberCount     atomic.Uint32

	_ [CacheLineSize]byte

	snapshots [2]subscriberSnapshot
}

const controlBlockHeaderSize = unsafe.Sizeof(controlBlock{})

// controlBlockAt casts the base of a segment's byte slice to a
// *controlBlock. The caller must ensure b is at least controlBlockHeaderSize
// bytes long.
func controlBlockAt(b []byte) *controlBlock {
	return (*controlBlock)(unsafe.Pointer(unsafe.SliceData(b)))
}

// initialize writes the control block's fixed fields for a freshly created
// segment. Called exactly once, by the creating process, before any other
// process can observe the segment.
func (cb *controlBlock) initialize(cfg SegmentConfig) {
	cb.mode = uint32(cfg.Mode)
	cb.maxChunks = cfg.MaxChunks
	cb.chunkSize = cfg.ChunkSize
	cb.maxChannels = cfg.MaxChannels
	cb.queueCapacity = cfg.QueueCapacity
	cb.attachedCount.Store(1)
	cb.pool.freeHead.Store(0)
	cb.pool.freeCount.Store(cfg.MaxChunks)
	cb.pool.eventFlags.Store(flagHasFreeChunk)
	cb.readyMask.Store(0)
	cb.activeSnapshotIndex.Store(0)
	cb.registrySeq.Store(0)
	cb.subscriberCount.Store(0)
	// magic and version are stored last: a concurrent attacher that
	// validates magic/version must see a fully initialized block.
	cb.version.Store(segmentVersion)
	cb.magic.Store(segmentMagic)
}

// validate checks the magic and version words of an existing segment.
func (cb *controlBlock) validate() error {
	if cb.magic.Load() != segmentMagic {
		return ErrSegmentInvalidMagic
	}
	if cb.version.Load() != segmentVersion {
		return ErrSegmentInvalidMagic
	}
	return nil
}

// configFromControlBlock reconstructs the SegmentConfig an attaching
// process should use, read from an already-initialized control block.
func configFromControlBlock(cb *controlBlock) SegmentConfig {
	return SegmentConfig{
		Mode:          SegmentMode(cb.mode),
		MaxChunks:     cb.maxChunks,
		ChunkSize:     cb.chunkSize,
		MaxChannels:   cb.maxChannels,
		QueueCapacity: cb.queueCapacity,
	}
}
