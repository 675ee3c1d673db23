// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import "testing"

func TestLayoutSizingIsMonotoneInChunkCount(t *testing.T) {
	cfg, err := SegmentConfig{Mode: SegmentModeNormal, MaxChunks: 4, ChunkSize: 64}.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	small := newLayout(cfg)

	// Enough chunks for the pool alone to exceed one 2 MiB shm alignment
	// unit; a few extra chunks would round up to the same total.
	cfg.MaxChunks = 16384
	big := newLayout(cfg)

	if big.totalSize <= small.totalSize {
		t.Fatalf("expected larger total size for more chunks: small=%d big=%d", small.totalSize, big.totalSize)
	}
	if big.poolBase != small.poolBase {
		t.Fatalf("pool base should not depend on chunk count: small=%d big=%d", small.poolBase, big.poolBase)
	}
}

func TestLayoutTotalSizeIsShmAligned(t *testing.T) {
	cfg, err := SegmentConfig{Mode: SegmentModeNormal, MaxChunks: 4, ChunkSize: 64}.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	l := newLayout(cfg)
	if l.totalSize%shmAlignment != 0 {
		t.Fatalf("total size %d is not a multiple of the shm alignment %d", l.totalSize, shmAlignment)
	}
}

func TestLayoutOffsetsAreDistinctAndOrdered(t *testing.T) {
	cfg, err := SegmentConfig{Mode: SegmentModeNormal, MaxChunks: 4, ChunkSize: 64}.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	l := newLayout(cfg)

	if l.queueRegionBase < l.controlBlockSize {
		t.Fatalf("queue region overlaps control block")
	}
	if l.poolBase < l.queueRegionBase+uint64(cfg.MaxChannels)*l.queueSlotStride {
		t.Fatalf("pool region overlaps queue region")
	}
	for i := uint32(0); i < cfg.MaxChannels; i++ {
		if l.channelSlotOffset(i) < l.queueRegionBase {
			t.Fatalf("channel slot %d offset below queue region base", i)
		}
	}
	for i := uint32(0); i < cfg.MaxChunks; i++ {
		if l.chunkOffset(i) < l.poolBase {
			t.Fatalf("chunk %d offset below pool base", i)
		}
	}
}
