// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import "sync/atomic"

// Publisher is a typed handle over a segment's chunk pool and channel
// registry, used to loan chunks and broadcast them to active subscribers.
type Publisher struct {
	_   noCopy
	seg *Segment
	cfg PublisherConfig

	pool     *segmentChunkPool
	registry *channelRegistry

	queueCapacity uint32
	dropped       atomic.Uint64
}

// NewPublisher constructs a Publisher bound to an already-attached segment.
func NewPublisher(seg *Segment, cfg PublisherConfig) *Publisher {
	cb := seg.controlBlockRef()
	return &Publisher{
		seg:           seg,
		cfg:           cfg,
		pool:          newSegmentChunkPool(cb, seg.Bytes(), seg.layoutRef()),
		registry:      newChannelRegistry(cb),
		queueCapacity: cb.queueCapacity,
	}
}

// Loan acquires a chunk from the pool, obeying cfg.LoanPolicy if the pool
// is exhausted.
func (p *Publisher) Loan() (LoanedSample, error) {
	index, err := p.pool.allocateWithPolicy(p.cfg.LoanPolicy, p.cfg.LoanTimeout)
	if err != nil {
		return LoanedSample{}, err
	}
	return newLoanedSample(p.pool, index), nil
}

// Send broadcasts sample to every active subscriber present in the
// registry's current snapshot, using a pre-increment-then-compensate
// refcount strategy so a subscriber racing ahead and closing the sample
// can never observe a torn reference count.
func (p *Publisher) Send(sample LoanedSample) error {
	if sample.closed {
		violate("publisher: Send called on an already-closed sample")
	}
	snap := p.registry.snapshot()

	sample.hdr.state.Store(uint32(chunkSent))
	sample.closed = true

	if snap.count == 0 {
		if sample.hdr.refCount.Add(^uint32(0)) == 0 {
			if err := p.pool.Deallocate(sample.index); err != nil {
				return err
			}
		}
		if p.cfg.SendWithoutSubscribersIsError {
			return ErrNoSubscribers
		}
		return nil
	}

	sample.hdr.refCount.Add(snap.count)

	var firstErr error
	delivered := 0
	for _, slot := range snap.indices {
		ch := channelAt(p.seg.ChannelSlot(slot), p.queueCapacity)
		if !ch.isActive() {
			sample.hdr.refCount.Add(^uint32(0))
			continue
		}
		err := ch.writeWithPolicy(sample.index, p.cfg.PublishPolicy, p.cfg.PublishTimeout, func(dropped uint32) {
			p.compensateDrop(dropped)
		})
		if err != nil {
			sample.hdr.refCount.Add(^uint32(0))
			p.dropped.Add(1)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered++
	}

	if sample.hdr.refCount.Add(^uint32(0)) == 0 {
		if err := p.pool.Deallocate(sample.index); err != nil {
			return err
		}
	}

	if delivered == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

// compensateDrop releases one reference on a chunk that Overwrite displaced
// from a subscriber's ring before it was ever read.
func (p *Publisher) compensateDrop(chunkIndex uint32) {
	hdr := p.pool.chunkHeader(chunkIndex)
	if hdr.refCount.Add(^uint32(0)) == 0 {
		_ = p.pool.Deallocate(chunkIndex)
	}
}

// DroppedCount returns the number of enqueue attempts that returned an
// error, under any PublishPolicy, since the Publisher was created.
func (p *Publisher) DroppedCount() uint64 {
	return p.dropped.Load()
}
