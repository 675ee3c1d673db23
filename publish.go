// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

// PublishPolicy is a Publisher's choice of how its channel writes
// (channel.writeWithPolicy) behave when a subscriber's ring is full.
type PublishPolicy uint8

const (
	// PublishOverwrite advances the ring's head by one to drop the oldest
	// unread chunk index, then writes.
	PublishOverwrite PublishPolicy = iota
	// PublishDrop returns ErrChannelFull; the producer releases its extra
	// reference on the chunk and moves on to the next subscriber.
	PublishDrop
	// PublishError is equivalent to PublishDrop; kept distinct so call
	// sites can express intent.
	PublishError
	// PublishBlock parks on HasSpace until the timeout elapses.
	PublishBlock
	// PublishWait busy-polls HasSpace with a short default timeout.
	PublishWait
)

func (p PublishPolicy) String() string {
	switch p {
	case PublishOverwrite:
		return "overwrite"
	case PublishDrop:
		return "drop"
	case PublishError:
		return "error"
	case PublishBlock:
		return "block"
	case PublishWait:
		return "wait"
	default:
		return "unknown"
	}
}
