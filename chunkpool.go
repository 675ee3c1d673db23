// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"time"

	"code.hybscloud.com/spin"
)

// segmentChunkPool is a lock-free Treiber-stack free list over on-segment
// chunk indices, generalized from an in-process bounded pool over a local
// slice to operate on shared-memory chunk headers whose next_free_index
// link lives in the segment itself.
type segmentChunkPool struct {
	cb  *controlBlock
	seg []byte
	l   layout
}

func newSegmentChunkPool(cb *controlBlock, seg []byte, l layout) *segmentChunkPool {
	return &segmentChunkPool{cb: cb, seg: seg, l: l}
}

// chunkBytes returns the full byte range (header + payload) of chunk i.
func (p *segmentChunkPool) chunkBytes(i uint32) []byte {
	off := p.l.chunkOffset(i)
	return p.seg[off : off+p.l.chunkStride]
}

func (p *segmentChunkPool) chunkHeader(i uint32) *chunkHeader {
	return chunkHeaderAt(p.chunkBytes(i))
}

// initializePool links every chunk onto the free list in index order and
// primes the control block's free-count.
func (p *segmentChunkPool) initializePool() {
	max := p.cb.maxChunks
	for i := uint32(0); i < max; i++ {
		next := i + 1
		if i == max-1 {
			next = invalidChunkIndex
		}
		p.chunkHeader(i).initializeFree(i, next)
	}
	p.cb.pool.freeHead.Store(0)
	p.cb.pool.freeCount.Store(max)
}

// Allocate implements ChunkPool.
func (p *segmentChunkPool) Allocate() (uint32, error) {
	sw := spin.Wait{}
	for {
		head := p.cb.pool.freeHead.Load()
		if head == invalidChunkIndex {
			return 0, ErrPoolExhausted
		}
		if head >= p.cb.maxChunks {
			violate("chunk pool: free-list head %d out of range (max %d)", head, p.cb.maxChunks)
		}
		hdr := p.chunkHeader(head)
		next := hdr.nextFreeIndex.Load()
		if p.cb.pool.freeHead.CompareAndSwap(head, next) {
			p.cb.pool.freeCount.Add(^uint32(0))
			hdr.state.Store(uint32(chunkLoaned))
			hdr.refCount.Store(1)
			if p.cb.pool.freeHead.Load() == invalidChunkIndex {
				clearFlags(&p.cb.pool.eventFlags, flagHasFreeChunk)
			}
			return head, nil
		}
		sw.Once()
	}
}

// Deallocate implements ChunkPool. The caller must have already observed
// the chunk's refcount drop to zero.
func (p *segmentChunkPool) Deallocate(index uint32) error {
	if index >= p.cb.maxChunks {
		violate("chunk pool: deallocate index %d out of range (max %d)", index, p.cb.maxChunks)
	}
	hdr := p.chunkHeader(index)
	if chunkState(hdr.state.Load()) == chunkFree {
		violate("chunk pool: chunk %d already free", index)
	}
	hdr.state.Store(uint32(chunkFree))

	sw := spin.Wait{}
	for {
		head := p.cb.pool.freeHead.Load()
		hdr.nextFreeIndex.Store(head)
		if p.cb.pool.freeHead.CompareAndSwap(head, index) {
			p.cb.pool.freeCount.Add(1)
			setFlagsAndWake(&p.cb.pool.eventFlags, flagHasFreeChunk, true)
			return nil
		}
		sw.Once()
	}
}

// Free implements ChunkPool.
func (p *segmentChunkPool) Free() uint32 {
	return p.cb.pool.freeCount.Load()
}

// allocateWithPolicy wraps Allocate with a Publisher's LoanPolicy.
func (p *segmentChunkPool) allocateWithPolicy(policy LoanPolicy, timeout time.Duration) (uint32, error) {
	index, err := p.Allocate()
	if err == nil {
		return index, nil
	}
	if err != ErrPoolExhausted {
		return 0, err
	}
	switch policy {
	case LoanError:
		return 0, ErrPoolExhausted
	case LoanWait:
		to := timeout
		if to == 0 {
			to = defaultPollTimeout
		}
		if werr := pollForFlags(&p.cb.pool.eventFlags, flagHasFreeChunk, to); werr != nil {
			return 0, ErrPoolExhausted
		}
	case LoanBlock:
		if werr := waitForFlags(&p.cb.pool.eventFlags, flagHasFreeChunk, timeout); werr != nil {
			return 0, ErrPoolExhausted
		}
	default:
		return 0, ErrPoolExhausted
	}
	return p.Allocate()
}
