// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/ipcbus"
)

func uniqueSegmentName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("ipcbus-test-%s-%d", t.Name(), time.Now().UnixNano())
}

// S1 — one publisher, one subscriber, bounded send.
func TestEndToEndBoundedSend(t *testing.T) {
	name := uniqueSegmentName(t)
	seg, created, err := ipcbus.Attach(name, ipcbus.SegmentConfig{
		Mode: ipcbus.SegmentModeNormal, MaxChunks: 4, ChunkSize: 64, QueueCapacity: 8, AutoCleanup: true,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !created {
		t.Fatalf("expected this call to create the segment")
	}
	defer seg.Close(true)

	pub := ipcbus.NewPublisher(seg, ipcbus.PublisherConfig{})
	sub, err := ipcbus.NewSubscriber(seg, ipcbus.SubscriberConfig{})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	sample, err := pub.Loan()
	if err != nil {
		t.Fatalf("Loan: %v", err)
	}
	payload := sample.Payload()
	copy(payload, []byte{0x01, 0x02, 0x03, 0x04})
	sample.SetPayloadSize(4)

	if err := pub.Send(sample); err != nil {
		t.Fatalf("Send: %v", err)
	}

	received, err := sub.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	got := received.Payload()
	if len(got) != 4 || got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Fatalf("unexpected payload: %v", got)
	}
	if err := received.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// S2 — broadcast fan-out of 3.
func TestEndToEndBroadcastFanout(t *testing.T) {
	name := uniqueSegmentName(t)
	seg, _, err := ipcbus.Attach(name, ipcbus.SegmentConfig{
		Mode: ipcbus.SegmentModeNormal, MaxChunks: 4, ChunkSize: 64, QueueCapacity: 8, AutoCleanup: true,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer seg.Close(true)

	pub := ipcbus.NewPublisher(seg, ipcbus.PublisherConfig{})

	var subs []*ipcbus.Subscriber
	for i := 0; i < 3; i++ {
		sub, err := ipcbus.NewSubscriber(seg, ipcbus.SubscriberConfig{})
		if err != nil {
			t.Fatalf("NewSubscriber %d: %v", i, err)
		}
		defer sub.Close()
		subs = append(subs, sub)
	}

	sample, err := pub.Loan()
	if err != nil {
		t.Fatalf("Loan: %v", err)
	}
	copy(sample.Payload(), []byte{0xAA, 0xBB})
	sample.SetPayloadSize(2)
	if err := pub.Send(sample); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for i, sub := range subs {
		received, err := sub.Receive()
		if err != nil {
			t.Fatalf("Receive on subscriber %d: %v", i, err)
		}
		got := received.Payload()
		if len(got) != 2 || got[0] != 0xAA || got[1] != 0xBB {
			t.Fatalf("subscriber %d: unexpected payload %v", i, got)
		}
		if err := received.Close(); err != nil {
			t.Fatalf("Close on subscriber %d: %v", i, err)
		}
	}
}

// S3 — drop policy under pressure.
func TestEndToEndDropPolicyUnderPressure(t *testing.T) {
	name := uniqueSegmentName(t)
	seg, _, err := ipcbus.Attach(name, ipcbus.SegmentConfig{
		Mode: ipcbus.SegmentModeNormal, MaxChunks: 16, ChunkSize: 64, QueueCapacity: 4, AutoCleanup: true,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer seg.Close(true)

	pub := ipcbus.NewPublisher(seg, ipcbus.PublisherConfig{PublishPolicy: ipcbus.PublishDrop})
	sub, err := ipcbus.NewSubscriber(seg, ipcbus.SubscriberConfig{})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	sent, dropped := 0, 0
	for i := 0; i < 10; i++ {
		sample, err := pub.Loan()
		if err != nil {
			t.Fatalf("Loan %d: %v", i, err)
		}
		sample.SetPayloadSize(0)
		if err := pub.Send(sample); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if sent != 3 {
		t.Fatalf("expected 3 successful sends (usable capacity), got %d", sent)
	}
	if dropped != 7 {
		t.Fatalf("expected 7 dropped sends, got %d", dropped)
	}

	received := 0
	for {
		r, err := sub.Receive()
		if err != nil {
			break
		}
		r.Close()
		received++
	}
	if received != 3 {
		t.Fatalf("expected subscriber to receive exactly 3 messages, got %d", received)
	}
}

// S5 — blocking receive with timeout, no publisher.
func TestEndToEndBlockingReceiveTimesOut(t *testing.T) {
	name := uniqueSegmentName(t)
	seg, _, err := ipcbus.Attach(name, ipcbus.SegmentConfig{
		Mode: ipcbus.SegmentModeNormal, MaxChunks: 4, ChunkSize: 64, QueueCapacity: 8, AutoCleanup: true,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer seg.Close(true)

	sub, err := ipcbus.NewSubscriber(seg, ipcbus.SubscriberConfig{ReadPolicy: ipcbus.ReadBlock, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	start := time.Now()
	_, err = sub.Receive()
	elapsed := time.Since(start)
	if err != ipcbus.ErrChannelTimeout {
		t.Fatalf("expected ErrChannelTimeout, got %v", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

// Concurrent publishers loaning and sending against one subscriber,
// verifying no chunk is ever observed with a torn payload.
func TestEndToEndConcurrentPublishersFanIn(t *testing.T) {
	name := uniqueSegmentName(t)
	seg, _, err := ipcbus.Attach(name, ipcbus.SegmentConfig{
		Mode: ipcbus.SegmentModeNormal, MaxChunks: 64, ChunkSize: 64, QueueCapacity: 32, AutoCleanup: true,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer seg.Close(true)

	sub, err := ipcbus.NewSubscriber(seg, ipcbus.SubscriberConfig{ReadPolicy: ipcbus.ReadWait, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	iterations := 200
	if raceEnabled {
		iterations = 40
	}
	const publishers = 4

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(tag byte) {
			defer wg.Done()
			pub := ipcbus.NewPublisher(seg, ipcbus.PublisherConfig{PublishPolicy: ipcbus.PublishDrop})
			for i := 0; i < iterations; i++ {
				sample, err := pub.Loan()
				if err != nil {
					continue
				}
				payload := sample.Payload()
				for j := range payload {
					payload[j] = tag
				}
				sample.SetPayloadSize(len(payload))
				_ = pub.Send(sample)
			}
		}(byte('A' + p))
	}
	wg.Wait()

	seen := 0
	for {
		received, err := sub.Receive()
		if err != nil {
			break
		}
		payload := received.Payload()
		tag := payload[0]
		for _, b := range payload {
			if b != tag {
				t.Fatalf("torn payload observed: %v", payload)
			}
		}
		received.Close()
		seen++
	}
	if seen == 0 {
		t.Fatalf("expected at least one message to survive fan-in")
	}
}
