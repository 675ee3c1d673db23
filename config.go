// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import "time"

// SegmentMode selects the control block's size class and ready-mask width.
// ready_mask is always a single uint64-wide field regardless of mode;
// SegmentMode only changes how many of its bits are usable and what
// MaxChannels/QueueCapacity default to.
type SegmentMode uint8

const (
	// SegmentModeShrink is the embedded profile: 2 channels, 64 queue slots.
	SegmentModeShrink SegmentMode = iota
	// SegmentModeNormal is the default profile: 30 channels, 256 queue slots.
	SegmentModeNormal
	// SegmentModeExtend is the high fan-out profile: 62 channels, 1024 queue slots.
	SegmentModeExtend
)

// defaults returns the MaxChannels/QueueCapacity pair a mode implies
// when the caller leaves those SegmentConfig fields at zero.
func (m SegmentMode) defaults() (maxChannels, queueCapacity uint32) {
	switch m {
	case SegmentModeShrink:
		return 2, 64
	case SegmentModeExtend:
		return 62, 1024
	default:
		return 30, 256
	}
}

// maxChannelsLimit is the largest MaxChannels a mode's ready_mask can encode.
// Shrink, Normal and Extend use only the low 2, 30 and 62 bits of the
// uint64 mask respectively, leaving the upper bits unused rather than
// narrowing the stored type; see SPEC_FULL.md §6.
func (m SegmentMode) maxChannelsLimit() uint32 {
	switch m {
	case SegmentModeShrink:
		return 2
	case SegmentModeExtend:
		return 62
	default:
		return 30
	}
}

func (m SegmentMode) String() string {
	switch m {
	case SegmentModeShrink:
		return "shrink"
	case SegmentModeExtend:
		return "extend"
	default:
		return "normal"
	}
}

// SegmentConfig configures a fresh shared-memory segment at creation time.
// Fields left at zero take defaults: MaxChannels and QueueCapacity from
// Mode, MaxChunks 128, ChunkSize 4096.
type SegmentConfig struct {
	Mode          SegmentMode
	MaxChunks     uint32
	ChunkSize     uint32
	MaxChannels   uint32
	QueueCapacity uint32
	// AutoCleanup unlinks the /dev/shm object when the creating process's
	// Segment handle is the last one closed. Handles obtained by attaching
	// to an existing segment do not carry this setting.
	AutoCleanup bool
}

// normalize fills in mode-derived defaults and validates the result.
func (c SegmentConfig) normalize() (SegmentConfig, error) {
	out := c
	defMaxChannels, defQueueCapacity := c.Mode.defaults()
	if out.MaxChannels == 0 {
		out.MaxChannels = defMaxChannels
	}
	if out.QueueCapacity == 0 {
		out.QueueCapacity = defQueueCapacity
	}
	if out.MaxChunks == 0 {
		out.MaxChunks = 128
	}
	if out.ChunkSize == 0 {
		out.ChunkSize = 4096
	}
	if out.MaxChannels > out.Mode.maxChannelsLimit() {
		return SegmentConfig{}, ErrInvalidArgument
	}
	if out.QueueCapacity == 0 || out.QueueCapacity&(out.QueueCapacity-1) != 0 {
		return SegmentConfig{}, ErrInvalidArgument
	}
	if out.QueueCapacity > defQueueCapacity {
		return SegmentConfig{}, ErrInvalidArgument
	}
	if out.MaxChunks == 0 || out.ChunkSize == 0 {
		return SegmentConfig{}, ErrInvalidArgument
	}
	return out, nil
}

// LoanPolicy controls Publisher.Loan's behavior when the chunk pool is
// exhausted.
type LoanPolicy uint8

const (
	// LoanBlock parks on HasFreeChunk until the timeout elapses. It is the
	// zero value, so a zero PublisherConfig loans under LoanBlock.
	LoanBlock LoanPolicy = iota
	// LoanError returns ErrPoolExhausted immediately.
	LoanError
	// LoanWait busy-polls HasFreeChunk with a short default timeout.
	LoanWait
)

// PublisherConfig configures a Publisher port.
type PublisherConfig struct {
	LoanPolicy LoanPolicy
	// LoanTimeout bounds LoanWait/LoanBlock. Zero means the built-in
	// default for LoanWait and no limit for LoanBlock.
	LoanTimeout time.Duration
	// PublishPolicy governs every channel write Send performs; zero value
	// is PublishOverwrite.
	PublishPolicy PublishPolicy
	// PublishTimeout bounds PublishBlock/PublishWait. Zero means the
	// built-in default for PublishWait and no limit for PublishBlock.
	PublishTimeout time.Duration
	// SendWithoutSubscribersIsError: false (default) treats zero active
	// subscribers as a successful no-op send; true surfaces ErrNoSubscribers.
	SendWithoutSubscribersIsError bool
}

// ReadPolicy controls Subscriber.Receive's behavior when the channel is
// empty.
type ReadPolicy uint8

const (
	// ReadSkip returns ErrChannelEmpty immediately.
	ReadSkip ReadPolicy = iota
	// ReadError is equivalent to ReadSkip; kept distinct so call sites
	// can express intent.
	ReadError
	// ReadWait busy-polls HasData with a short default timeout.
	ReadWait
	// ReadBlock parks on HasData until the timeout elapses.
	ReadBlock
)

// SubscriberConfig configures a Subscriber port.
type SubscriberConfig struct {
	ReadPolicy ReadPolicy
	// Timeout bounds ReadWait/ReadBlock. Zero means the built-in default
	// for ReadWait and no limit for ReadBlock.
	Timeout time.Duration
}

// defaultPollTimeout is the default timeout for Wait-policy (busy-poll)
// operations.
const defaultPollTimeout = 10 * time.Millisecond
