// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"sync/atomic"
	"unsafe"
)

// chunkState is the Free/Loaned/Sent/Received state machine a chunk moves
// through over its lifetime.
type chunkState uint32

const (
	chunkFree chunkState = iota
	chunkLoaned
	chunkSent
	chunkReceived
)

// chunkHeader sits immediately before a chunk's payload bytes in the pool
// region. Like controlBlock, it is only ever reached by casting a segment
// byte range — never constructed on the Go heap.
type chunkHeader struct {
	state         atomic.Uint32
	refCount      atomic.Uint32
	payloadSize   atomic.Uint32
	nextFreeIndex atomic.Uint32
	chunkIndex    uint32
	// minInterval mirrors the channel header's own reserved rate-limiting
	// field; the core never reads it.
	minInterval uint32

	_ [CacheLineSize]byte
}

const chunkHeaderSize = unsafe.Sizeof(chunkHeader{})

// chunkHeaderAt casts the start of a chunk's byte range to a *chunkHeader.
func chunkHeaderAt(b []byte) *chunkHeader {
	return (*chunkHeader)(unsafe.Pointer(unsafe.SliceData(b)))
}

// payload returns the chunk's payload bytes, immediately following its
// header within the same chunk byte range.
func (h *chunkHeader) payload(chunkBytes []byte) []byte {
	return chunkBytes[chunkHeaderSize:]
}

// initializeFree writes a chunk header into the free-list state used at
// pool construction time.
func (h *chunkHeader) initializeFree(index, next uint32) {
	h.state.Store(uint32(chunkFree))
	h.refCount.Store(0)
	h.payloadSize.Store(0)
	h.nextFreeIndex.Store(next)
	h.chunkIndex = index
	h.minInterval = 0
}
