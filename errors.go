// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import "errors"

// Segment-level errors.
var (
	ErrSegmentCreateFailed  = errors.New("ipcbus: segment create failed")
	ErrSegmentMapFailed     = errors.New("ipcbus: segment map failed")
	ErrSegmentNotFound      = errors.New("ipcbus: segment not found")
	ErrSegmentStatFailed    = errors.New("ipcbus: segment stat failed")
	ErrSegmentInvalidMagic  = errors.New("ipcbus: segment magic or version mismatch")
)

// Pool-level errors. There is no error value for an invalid chunk index or
// an invalid chunk state: either condition routes through violate()
// instead, since both indicate a programming error rather than a runtime
// condition a caller can recover from.
var (
	ErrPoolExhausted = errors.New("ipcbus: chunk pool exhausted")
)

// Channel-level errors.
var (
	ErrChannelInvalid            = errors.New("ipcbus: channel invalid")
	ErrChannelFull               = errors.New("ipcbus: channel full")
	ErrChannelEmpty              = errors.New("ipcbus: channel empty")
	ErrChannelTimeout            = errors.New("ipcbus: channel wait timed out")
	ErrChannelWaitsetUnavailable = errors.New("ipcbus: channel has no event-flags word attached")
	ErrChannelSpuriousWakeup     = errors.New("ipcbus: channel spurious wakeup")
	ErrChannelPolicyNotSupported = errors.New("ipcbus: channel policy not supported")
	ErrChannelAlreadyInUse       = errors.New("ipcbus: channel slot already in use")
	ErrChannelNotFound           = errors.New("ipcbus: channel slot not found")
)

// Registry-level errors.
var (
	ErrInvalidChannelIndex = errors.New("ipcbus: invalid channel index")
	ErrRegistryRetry       = errors.New("ipcbus: registry slot allocation lost a race, retry")
	ErrRegistryExhausted   = errors.New("ipcbus: no free registry slot")
)

// General errors.
var (
	ErrInvalidArgument   = errors.New("ipcbus: invalid argument")
	ErrResourceExhausted = errors.New("ipcbus: resource exhausted")
	ErrNoSubscribers     = errors.New("ipcbus: no subscribers and SendWithoutSubscribersIsError is set")
)
