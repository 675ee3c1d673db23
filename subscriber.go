// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import "unsafe"

// Subscriber holds a reserved channel slot for the lifetime of its
// subscription, receiving chunk indices a Publisher enqueued for it.
type Subscriber struct {
	_   noCopy
	seg *Segment
	cfg SubscriberConfig

	registry *channelRegistry
	pool     *segmentChunkPool

	slot   uint32
	ch     channel
	closed bool
}

// NewSubscriber reserves a channel slot, initializes its ring, and
// registers it as active.
func NewSubscriber(seg *Segment, cfg SubscriberConfig) (*Subscriber, error) {
	cb := seg.controlBlockRef()
	registry := newChannelRegistry(cb)

	var slot uint32
	for {
		s, err := registry.allocateSlot()
		if err == nil {
			slot = s
			break
		}
		if err == ErrRegistryRetry {
			continue
		}
		return nil, err
	}

	ch := channelAt(seg.ChannelSlot(slot), cb.queueCapacity)
	ch.initialize(cb.queueCapacity)
	ch.hdr.inUse.Store(1)

	registry.register(slot)
	registry.activateSlot(ch)

	return &Subscriber{
		seg:      seg,
		cfg:      cfg,
		registry: registry,
		pool:     newSegmentChunkPool(cb, seg.Bytes(), seg.layoutRef()),
		slot:     slot,
		ch:       ch,
	}, nil
}

// Receive dequeues the next chunk index from this subscriber's ring under
// cfg.ReadPolicy, wrapping it as a ReceivedSample. The returned sample's
// reference was pre-incremented by the publisher that sent it; callers
// must Close it, normally via defer.
func (sub *Subscriber) Receive() (ReceivedSample, error) {
	index, err := sub.ch.readWithPolicy(sub.cfg.ReadPolicy, sub.cfg.Timeout)
	if err != nil {
		return ReceivedSample{}, err
	}
	return newReceivedSample(sub.pool, index), nil
}

// IoVecs returns a zero-copy scatter view of s's payload, suitable for a
// vectored write (writev, net.Buffers) without copying out of the segment.
func (sub *Subscriber) IoVecs(s ReceivedSample) []IoVec {
	payload := s.Payload()
	if len(payload) == 0 {
		return nil
	}
	return []IoVec{{Base: (*byte)(unsafe.Pointer(unsafe.SliceData(payload))), Len: uint64(len(payload))}}
}

// Close deactivates and unregisters this subscriber's slot. Idempotent.
func (sub *Subscriber) Close() error {
	if sub.closed {
		return nil
	}
	sub.closed = true
	sub.registry.deactivateSlot(sub.ch)
	sub.ch.hdr.inUse.Store(0)
	sub.registry.unregister(sub.slot)
	return nil
}
