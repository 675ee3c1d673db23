// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

// IoVec represents a scatter/gather I/O descriptor compatible with the
// standard Linux struct iovec. Subscriber.IoVecs uses it to hand a received
// payload directly to a vectored write without copying out of the segment.
//
// Memory layout matches the C struct iovec exactly:
//
//	struct iovec {
//	    void  *iov_base;  // Starting address
//	    size_t iov_len;   // Number of bytes
//	};
//
// The caller must ensure Base points to valid memory for the lifetime of
// any I/O operation using this IoVec — for a ReceivedSample this means not
// outliving the sample's Close call.
type IoVec struct {
	Base *byte
	Len  uint64
}
