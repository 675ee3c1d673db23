// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"sync"
	"testing"
)

func newTestRegistry(t *testing.T, maxChannels uint32) *channelRegistry {
	t.Helper()
	cb := &controlBlock{}
	cb.maxChannels = maxChannels
	return newChannelRegistry(cb)
}

func TestRegistryAllocateRegisterUnregister(t *testing.T) {
	r := newTestRegistry(t, 4)

	var slots []uint32
	for i := 0; i < 4; i++ {
		slot, err := r.allocateSlot()
		if err != nil {
			t.Fatalf("allocateSlot: %v", err)
		}
		r.register(slot)
		slots = append(slots, slot)
	}

	if _, err := r.allocateSlot(); err != ErrRegistryExhausted {
		t.Fatalf("expected ErrRegistryExhausted, got %v", err)
	}

	snap := r.snapshot()
	if snap.count != 4 {
		t.Fatalf("expected snapshot count 4, got %d", snap.count)
	}

	if ok := r.unregister(slots[1]); !ok {
		t.Fatalf("expected unregister to succeed")
	}
	if ok := r.unregister(slots[1]); ok {
		t.Fatalf("expected idempotent unregister of an already-clear slot to return false")
	}

	snap = r.snapshot()
	if snap.count != 3 {
		t.Fatalf("expected snapshot count 3 after unregister, got %d", snap.count)
	}
	for _, idx := range snap.indices {
		if idx == slots[1] {
			t.Fatalf("unregistered slot %d still present in snapshot", slots[1])
		}
	}
}

func TestRegistrySnapshotIdempotence(t *testing.T) {
	r := newTestRegistry(t, 4)
	slot, err := r.allocateSlot()
	if err != nil {
		t.Fatalf("allocateSlot: %v", err)
	}
	r.register(slot)

	a := r.snapshot()
	b := r.snapshot()
	if a.count != b.count {
		t.Fatalf("expected equal counts across consecutive snapshots: %d vs %d", a.count, b.count)
	}
	for i := range a.indices {
		if a.indices[i] != b.indices[i] {
			t.Fatalf("expected equal indices across consecutive snapshots")
		}
	}
}

func TestRegistryConcurrentRegisterAndSnapshot(t *testing.T) {
	const maxChannels = 30
	r := newTestRegistry(t, maxChannels)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < maxChannels; i++ {
			var slot uint32
			for {
				s, err := r.allocateSlot()
				if err == nil {
					slot = s
					break
				}
				if err == ErrRegistryRetry {
					continue
				}
				return
			}
			r.register(slot)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snap := r.snapshot()
			mask := r.cb.readyMask.Load()
			for _, idx := range snap.indices {
				if mask&(uint64(1)<<idx) == 0 {
					t.Errorf("snapshot contains index %d whose bit is clear in ready_mask", idx)
					return
				}
			}
		}
	}()

	wg.Wait()
}
