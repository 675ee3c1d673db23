// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// channelHeader is the fixed-layout header of one subscriber's ring queue,
// living at the start of its channel slot in the segment. The ring of
// uint32 chunk indices immediately follows it.
type channelHeader struct {
	capacity    uint32
	minInterval uint32
	head        atomic.Uint32
	tail        atomic.Uint32
	eventFlags  atomic.Uint32
	active      atomic.Uint32
	inUse       atomic.Uint32

	_ [CacheLineSize]byte
}

const channelHeaderSize = unsafe.Sizeof(channelHeader{})

// channel is a component's view of one subscriber's slot: its header plus
// the ring of chunk indices that follows it in the same byte range.
type channel struct {
	hdr  *channelHeader
	ring []uint32
}

// channelAt casts a channel slot's byte range to a channel view. slotBytes
// must be at least channelHeaderSize + capacity*4 bytes long.
func channelAt(slotBytes []byte, capacity uint32) channel {
	hdr := (*channelHeader)(unsafe.Pointer(unsafe.SliceData(slotBytes)))
	ringBytes := slotBytes[channelHeaderSize:]
	ring := unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(ringBytes))), capacity)
	return channel{hdr: hdr, ring: ring}
}

// initialize resets a channel slot to its inactive, empty state.
func (c channel) initialize(capacity uint32) {
	c.hdr.capacity = capacity
	c.hdr.minInterval = 0
	c.hdr.head.Store(0)
	c.hdr.tail.Store(0)
	c.hdr.eventFlags.Store(0)
	c.hdr.active.Store(0)
	c.hdr.inUse.Store(0)
	for i := range c.ring {
		c.ring[i] = invalidChunkIndex
	}
}

func (c channel) size() uint32 {
	cap := c.hdr.capacity
	return (c.hdr.tail.Load() + cap - c.hdr.head.Load()) % cap
}

func (c channel) isActive() bool {
	return c.hdr.active.Load() != 0
}

// write is the unconditional producer step. Returns false if the ring was
// full and nothing was written.
func (c channel) write(index uint32) bool {
	cap := c.hdr.capacity
	tail := c.hdr.tail.Load()
	nextTail := (tail + 1) % cap
	head := c.hdr.head.Load()
	if nextTail == head {
		return false
	}
	c.ring[tail] = index
	c.hdr.tail.Store(nextTail)
	setFlagsAndWake(&c.hdr.eventFlags, flagHasData, true)
	return true
}

// read is the unconditional consumer step. ok is false if the ring was
// empty.
func (c channel) read() (index uint32, ok bool) {
	cap := c.hdr.capacity
	head := c.hdr.head.Load()
	tail := c.hdr.tail.Load()
	if head == tail {
		clearFlags(&c.hdr.eventFlags, flagHasData)
		return 0, false
	}
	index = c.ring[head]
	c.hdr.head.Store((head + 1) % cap)
	setFlagsAndWake(&c.hdr.eventFlags, flagHasSpace, true)
	if c.hdr.head.Load() == c.hdr.tail.Load() {
		clearFlags(&c.hdr.eventFlags, flagHasData)
	}
	return index, true
}

// overwriteOldest advances head by one, dropping the oldest unread chunk
// index, via CompareAndSwap so a concurrent consumer drain is never
// clobbered. Returns the dropped index and true if this call performed
// the advance.
func (c channel) overwriteOldest() (dropped uint32, advanced bool) {
	cap := c.hdr.capacity
	head := c.hdr.head.Load()
	dropped = c.ring[head]
	advanced = c.hdr.head.CompareAndSwap(head, (head+1)%cap)
	return dropped, advanced
}

// writeWithPolicy implements the producer-side publish policy branch. index
// is the chunk to enqueue; onDrop, if non-nil, is called with any chunk
// index displaced by an Overwrite so the caller can compensate its refcount.
func (c channel) writeWithPolicy(index uint32, policy PublishPolicy, timeout time.Duration, onDrop func(uint32)) error {
	if c.hdr.inUse.Load() == 0 {
		return ErrChannelInvalid
	}
	if c.write(index) {
		return nil
	}
	switch policy {
	case PublishOverwrite:
		if dropped, advanced := c.overwriteOldest(); advanced && onDrop != nil {
			onDrop(dropped)
		}
		if c.write(index) {
			return nil
		}
		return ErrChannelFull
	case PublishDrop, PublishError:
		return ErrChannelFull
	case PublishBlock:
		// A HasSpace bit left by an earlier read says nothing about the ring
		// now: clear it and retry once before parking.
		clearFlags(&c.hdr.eventFlags, flagHasSpace)
		if c.write(index) {
			return nil
		}
		to := timeout
		if err := waitForFlags(&c.hdr.eventFlags, flagHasSpace, to); err != nil {
			return ErrChannelTimeout
		}
		if c.write(index) {
			return nil
		}
		return ErrChannelSpuriousWakeup
	case PublishWait:
		clearFlags(&c.hdr.eventFlags, flagHasSpace)
		if c.write(index) {
			return nil
		}
		to := timeout
		if to == 0 {
			to = defaultPollTimeout
		}
		if err := pollForFlags(&c.hdr.eventFlags, flagHasSpace, to); err != nil {
			return ErrChannelTimeout
		}
		if c.write(index) {
			return nil
		}
		return ErrChannelSpuriousWakeup
	default:
		return ErrChannelPolicyNotSupported
	}
}

// readWithPolicy implements the consumer-side read policy branch.
func (c channel) readWithPolicy(policy ReadPolicy, timeout time.Duration) (uint32, error) {
	if c.hdr.inUse.Load() == 0 {
		return 0, ErrChannelInvalid
	}
	if index, ok := c.read(); ok {
		return index, nil
	}
	switch policy {
	case ReadSkip, ReadError:
		return 0, ErrChannelEmpty
	case ReadBlock:
		if err := waitForFlags(&c.hdr.eventFlags, flagHasData, timeout); err != nil {
			return 0, ErrChannelTimeout
		}
		if index, ok := c.read(); ok {
			return index, nil
		}
		return 0, ErrChannelSpuriousWakeup
	case ReadWait:
		to := timeout
		if to == 0 {
			to = defaultPollTimeout
		}
		if err := pollForFlags(&c.hdr.eventFlags, flagHasData, to); err != nil {
			return 0, ErrChannelTimeout
		}
		if index, ok := c.read(); ok {
			return index, nil
		}
		return 0, ErrChannelSpuriousWakeup
	default:
		return 0, ErrChannelPolicyNotSupported
	}
}
