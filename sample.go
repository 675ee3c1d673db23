// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

// LoanedSample is a writable handle over a chunk exclusively owned by a
// publisher, obtained from Publisher.Loan. It is logically move-only: pass
// it to Publisher.Send (which consumes it) or Close it to discard without
// sending. A zero-value LoanedSample is not usable. Send works on its own
// copy, so the caller's copy does not record the transfer: a sample passed
// to Send must not be closed afterwards.
//
// LoanedSample is passed by value between Loan and Send, so it does not
// embed noCopy: the pool pointer and chunk index it carries are cheap to
// copy, and go vet's copylocks check would flag every Send call otherwise.
type LoanedSample struct {
	pool   *segmentChunkPool
	index  uint32
	hdr    *chunkHeader
	bytes  []byte
	closed bool
}

func newLoanedSample(pool *segmentChunkPool, index uint32) LoanedSample {
	chunkBytes := pool.chunkBytes(index)
	hdr := chunkHeaderAt(chunkBytes)
	return LoanedSample{pool: pool, index: index, hdr: hdr, bytes: chunkBytes}
}

// Payload returns a writable view over the chunk's payload bytes, sized to
// the pool's configured chunk size.
func (s *LoanedSample) Payload() []byte {
	return s.bytes[chunkHeaderSize : chunkHeaderSize+uintptr(s.pool.cb.chunkSize)]
}

// SetPayloadSize records how many bytes of Payload() were actually written;
// ReceivedSample.Payload is sliced to this length.
func (s *LoanedSample) SetPayloadSize(n int) {
	s.hdr.payloadSize.Store(uint32(n))
}

// Close discards the sample without sending it: releases the publisher's
// reference and returns the chunk to the pool if nothing else references
// it. Safe to call from a defer on every exit path that does not pass the
// sample to Send; a second Close on the same value is a no-op.
func (s *LoanedSample) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.hdr.refCount.Add(^uint32(0)) == 0 {
		return s.pool.Deallocate(s.index)
	}
	return nil
}

// ReceivedSample is a read-only handle over one subscriber's reference to a
// chunk, obtained from Subscriber.Receive. Like LoanedSample, it is passed
// by value and does not embed noCopy.
type ReceivedSample struct {
	pool   *segmentChunkPool
	index  uint32
	hdr    *chunkHeader
	bytes  []byte
	closed bool
}

func newReceivedSample(pool *segmentChunkPool, index uint32) ReceivedSample {
	chunkBytes := pool.chunkBytes(index)
	hdr := chunkHeaderAt(chunkBytes)
	return ReceivedSample{pool: pool, index: index, hdr: hdr, bytes: chunkBytes}
}

// Payload returns a slice over exactly payload_size bytes of the chunk's
// payload region. Callers must treat it as read-only: Go cannot express a
// read-only byte slice at the type level without an extra copy, which this
// module avoids for zero-copy reasons.
func (s *ReceivedSample) Payload() []byte {
	n := s.hdr.payloadSize.Load()
	return s.bytes[chunkHeaderSize : chunkHeaderSize+uintptr(n) : chunkHeaderSize+uintptr(n)]
}

// Close decrements the chunk's reference count, returning it to the pool if
// this was the last live reference. Safe to call from a defer; a second
// Close is a no-op.
func (s *ReceivedSample) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.hdr.refCount.Add(^uint32(0)) == 0 {
		return s.pool.Deallocate(s.index)
	}
	return nil
}
