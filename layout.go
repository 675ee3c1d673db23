// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

const (
	segmentMagic   uint32 = 0xCE025250
	segmentVersion uint32 = 0x00010000

	invalidChunkIndex uint32 = 0xFFFFFFFF

	shmAlignment = 2 * 1024 * 1024
)

// layout is the set of fixed byte offsets and strides computed once from a
// normalized SegmentConfig. Every component that needs to find a byte range
// inside the segment goes through a layout value rather than recomputing
// offsets from segment bytes.
type layout struct {
	cfg SegmentConfig

	controlBlockSize uint64
	queueSlotStride  uint64
	chunkStride      uint64

	queueRegionBase uint64
	poolBase        uint64
	totalSize       uint64
}

// newLayout computes a layout from a normalized SegmentConfig. cfg must
// already have passed (SegmentConfig).normalize.
func newLayout(cfg SegmentConfig) layout {
	l := layout{cfg: cfg}
	l.controlBlockSize = alignToCacheLine(uint64(controlBlockHeaderSize))
	l.queueSlotStride = alignToCacheLine(uint64(channelHeaderSize) + uint64(cfg.QueueCapacity)*4)
	l.chunkStride = alignToCacheLine(uint64(chunkHeaderSize) + uint64(cfg.ChunkSize))

	l.queueRegionBase = l.controlBlockSize
	l.poolBase = l.queueRegionBase + uint64(cfg.MaxChannels)*l.queueSlotStride
	total := l.poolBase + uint64(cfg.MaxChunks)*l.chunkStride
	l.totalSize = alignToShmSize(total)
	return l
}

// channelSlotOffset returns the byte offset of channel slot i's header
// within the segment.
func (l layout) channelSlotOffset(i uint32) uint64 {
	return l.queueRegionBase + uint64(i)*l.queueSlotStride
}

// chunkOffset returns the byte offset of chunk i's header within the segment.
func (l layout) chunkOffset(i uint32) uint64 {
	return l.poolBase + uint64(i)*l.chunkStride
}
