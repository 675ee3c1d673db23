// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"math/bits"

	"code.hybscloud.com/spin"
)

// channelRegistry tracks which of a segment's channel slots are currently
// in use and publishes a double-buffered snapshot publishers can iterate
// without locks, using a bit-walk-plus-snapshot-rebuild algorithm.
type channelRegistry struct {
	cb *controlBlock
}

func newChannelRegistry(cb *controlBlock) *channelRegistry {
	return &channelRegistry{cb: cb}
}

// allocateSlot finds the lowest clear bit of ready_mask and sets it with a
// single atomic OR, so a concurrent allocator taking a different bit does
// not make it fail. If another allocator set that same bit first, it returns
// ErrRegistryRetry so the caller re-invokes, rather than looping internally.
func (r *channelRegistry) allocateSlot() (uint32, error) {
	mask := r.cb.readyMask.Load()
	limit := r.cb.maxChannels
	inverted := ^mask
	if limit < 64 {
		inverted &= (uint64(1) << limit) - 1
	}
	if inverted == 0 {
		return 0, ErrRegistryExhausted
	}
	bit := uint32(bits.TrailingZeros64(inverted))
	bitVal := uint64(1) << bit
	if r.cb.readyMask.Or(bitVal)&bitVal != 0 {
		return 0, ErrRegistryRetry
	}
	return bit, nil
}

// inactiveSnapshotIndex returns the index of the snapshot not currently
// marked active.
func (r *channelRegistry) inactiveSnapshotIndex() uint32 {
	return 1 - r.cb.activeSnapshotIndex.Load()
}

// rebuildInactiveSnapshot walks the set bits of ready_mask low-to-high,
// writes them into the inactive snapshot, bumps its version, then flips
// active_snapshot_index with release semantics.
func (r *channelRegistry) rebuildInactiveSnapshot() {
	idx := r.inactiveSnapshotIndex()
	snap := &r.cb.snapshots[idx]

	mask := r.cb.readyMask.Load()
	limit := r.cb.maxChannels
	if limit < 64 {
		mask &= (uint64(1) << limit) - 1
	}
	count := uint32(0)
	for mask != 0 {
		bit := uint32(bits.TrailingZeros64(mask))
		snap.queueIndices[count] = bit
		count++
		mask &= mask - 1
	}
	snap.count.Store(count)
	snap.version.Add(1)

	r.cb.activeSnapshotIndex.Store(idx)
	r.cb.registrySeq.Add(1)
}

// register finishes a slot's registration: rebuild the snapshot to include
// it and bump the active-subscriber count.
func (r *channelRegistry) register(slotIndex uint32) {
	r.rebuildInactiveSnapshot()
	r.cb.subscriberCount.Add(1)
}

// unregister clears slotIndex's bit, rebuilds the snapshot, and decrements
// the active-subscriber count. Returns false if the bit was already clear.
func (r *channelRegistry) unregister(slotIndex uint32) bool {
	sw := spin.Wait{}
	bitVal := uint64(1) << slotIndex
	for {
		mask := r.cb.readyMask.Load()
		if mask&bitVal == 0 {
			return false
		}
		if r.cb.readyMask.CompareAndSwap(mask, mask&^bitVal) {
			break
		}
		sw.Once()
	}
	r.rebuildInactiveSnapshot()
	r.cb.subscriberCount.Add(^uint32(0))
	return true
}

// activateSlot marks a registered channel ready to be iterated by
// publishers. A subscriber that has reserved a slot but not yet activated
// it still appears in the snapshot, since its bit is already set, and is
// skipped by Publisher.Send.
func (r *channelRegistry) activateSlot(ch channel) {
	ch.hdr.active.Store(1)
}

// deactivateSlot clears a channel's active marker without freeing its slot.
func (r *channelRegistry) deactivateSlot(ch channel) {
	ch.hdr.active.Store(0)
}

// registrySnapshot is a value copy of the active subscriber snapshot,
// returned to publishers so they can iterate without holding a reference
// into shared memory.
type registrySnapshot struct {
	count   uint32
	indices []uint32
}

// snapshot loads active_snapshot_index acquire, then copies out the named
// snapshot.
func (r *channelRegistry) snapshot() registrySnapshot {
	idx := r.cb.activeSnapshotIndex.Load()
	snap := &r.cb.snapshots[idx]
	count := snap.count.Load()
	indices := make([]uint32, count)
	copy(indices, snap.queueIndices[:count])
	return registrySnapshot{count: count, indices: indices}
}
