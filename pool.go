// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

// ChunkPool is the lock-free allocator interface the chunk pool and the
// Publisher port share. Unlike a generic object pool, it hands out chunk
// indices into the segment's pool region rather than values — the payload
// bytes themselves never leave shared memory.
//
// Implementations must be safe for concurrent use by one or more producers
// and one or more consumers releasing chunks back to the pool.
type ChunkPool interface {
	// Allocate removes a chunk index from the free list.
	// Returns ErrPoolExhausted if the pool has no free chunk; Allocate
	// itself never waits for one.
	Allocate() (index uint32, err error)

	// Deallocate returns a chunk index to the free list. The caller must
	// have observed the chunk's reference count reach zero first; passing
	// an index still referenced by a subscriber is a programming error.
	Deallocate(index uint32) error

	// Free reports the current free-list length. Advisory only: a producer
	// racing this read may still see ErrPoolExhausted from Allocate.
	Free() uint32
}
