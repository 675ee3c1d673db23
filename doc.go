// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ipcbus implements a zero-copy, lock-free publish/subscribe
// substrate over a POSIX shared-memory segment, for low-latency IPC between
// processes on a single Linux host.
//
// # Segment layout
//
// A segment is created (or attached, if it already exists) by name and holds
// three regions back to back:
//
//	offset 0:             control block           (cache-aligned header)
//	offset Q_REGION_BASE:  channel slot[0..MaxChannels-1]
//	                       each slot: channel header + ring of chunk indices
//	offset POOL_BASE:      chunk[0..MaxChunks-1]
//	                       each chunk: chunk header + payload
//
// Every cross-process reference into the segment is a uint32 index or byte
// offset resolved against the calling process's own mapping — never a stored
// pointer. See Segment, Publisher and Subscriber.
//
// # Publish / subscribe
//
// A Publisher loans a chunk from the pool, writes the payload in place, and
// calls Send, which snapshots the channel registry and enqueues the chunk
// index into every active subscriber's ring under a configurable
// PublishPolicy (Block, Wait, Drop, Error, Overwrite). A Subscriber
// registers a ring slot and calls Receive, which dequeues a chunk index
// under a ReadPolicy and wraps it as a ReceivedSample. A ReceivedSample must
// be closed, normally via defer. A LoanedSample is either passed to Send,
// which consumes it, or closed to discard it, never both.
//
// # Blocking and backoff
//
// Blocking waits go through the wait primitive (waitForFlags/pollForFlags),
// which combines a futex-backed park/wake on Linux with spin.Yield-based
// polling for the Wait policy. Lock-free retry loops (the chunk pool's free
// list, the registry's ready-mask CAS) back off with spin.Wait, the same
// primitive the ecosystem's bounded pools use for contended CAS loops.
//
// # Dependencies
//
// ipcbus depends on:
//   - code.hybscloud.com/iox: the semantic ErrWouldBlock sentinel returned
//     when a wait times out.
//   - code.hybscloud.com/spin: CAS-retry backoff (spin.Wait) and runtime
//     yield (spin.Yield) for lock-free structures.
//   - golang.org/x/sys/unix: POSIX shared memory (open/truncate/mmap) and
//     the Linux futex syscall backing the wait primitive's slow path.
//
// # Architecture requirements
//
// This package requires a 64-bit CPU architecture (amd64, arm64, riscv64,
// loong64, ppc64, ppc64le, s390x, mips64, mips64le) for its atomic chunk
// and control-block fields, and Linux for the futex-backed wait primitive.
package ipcbus
