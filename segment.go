// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Segment is a handle to a shared-memory segment mapped at the same
// offsets in every attached process. All cross-process references it
// yields are byte ranges computed through its layout — never raw pointers.
type Segment struct {
	_ noCopy

	name   string
	path   string
	fd     int
	bytes  []byte
	l      layout
	cb     *controlBlock
	unlink bool
}

// shmPath derives the /dev/shm object path for a service name.
func shmPath(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r == '/' {
			return '_'
		}
		return r
	}, name)
	return "/dev/shm/" + sanitized
}

// Attach creates a fresh segment for name if none exists, or attaches to
// the existing one. created reports whether this call created it.
func Attach(name string, cfg SegmentConfig) (seg *Segment, created bool, err error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, false, err
	}
	path := shmPath(name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
	if err == nil {
		return attachCreated(name, path, fd, normalized)
	}
	if err != unix.EEXIST {
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentCreateFailed, err)
	}

	fd, err = unix.Open(path, unix.O_RDWR, 0666)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}
	return attachExisting(name, path, fd)
}

func attachCreated(name, path string, fd int, cfg SegmentConfig) (*Segment, bool, error) {
	l := newLayout(cfg)
	if err := unix.Ftruncate(fd, int64(l.totalSize)); err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentCreateFailed, err)
	}

	mem, err := unix.Mmap(fd, 0, int(l.totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentMapFailed, err)
	}

	for i := range mem {
		mem[i] = 0
	}

	cb := controlBlockAt(mem)
	cb.initialize(cfg)

	seg := &Segment{name: name, path: path, fd: fd, bytes: mem, l: l, cb: cb, unlink: cfg.AutoCleanup}

	pool := newSegmentChunkPool(cb, mem, l)
	pool.initializePool()

	for i := uint32(0); i < cfg.MaxChannels; i++ {
		ch := channelAt(seg.ChannelSlot(i), cfg.QueueCapacity)
		ch.initialize(cfg.QueueCapacity)
	}

	return seg, true, nil
}

func attachExisting(name, path string, fd int) (*Segment, bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentStatFailed, err)
	}
	size := st.Size
	if size < int64(controlBlockHeaderSize) {
		_ = unix.Close(fd)
		return nil, false, ErrSegmentInvalidMagic
	}

	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, false, fmt.Errorf("%w: %v", ErrSegmentMapFailed, err)
	}

	cb := controlBlockAt(mem)
	if err := cb.validate(); err != nil {
		_ = unix.Munmap(mem)
		_ = unix.Close(fd)
		return nil, false, err
	}

	cfg, _ := configFromControlBlock(cb).normalize()
	l := newLayout(cfg)
	cb.attachedCount.Add(1)

	seg := &Segment{name: name, path: path, fd: fd, bytes: mem, l: l, cb: cb}
	return seg, false, nil
}

// Bytes returns the full mapped segment.
func (s *Segment) Bytes() []byte { return s.bytes }

// ChannelSlot returns the byte range of channel slot i (header + ring).
func (s *Segment) ChannelSlot(i uint32) []byte {
	off := s.l.channelSlotOffset(i)
	return s.bytes[off : off+s.l.queueSlotStride]
}

// PoolBase returns the byte range covering the entire chunk pool region.
func (s *Segment) PoolBase() []byte {
	return s.bytes[s.l.poolBase:]
}

// controlBlockRef exposes the segment's control block to package-internal
// callers (Publisher, Subscriber construction).
func (s *Segment) controlBlockRef() *controlBlock { return s.cb }

func (s *Segment) layoutRef() layout { return s.l }

// Close unmaps and closes the segment's file descriptor. If unlink is true,
// or this handle created the segment with AutoCleanup set, and this is the
// last detaching process (per the control block's attached-process count),
// the /dev/shm object is removed.
func (s *Segment) Close(unlink bool) error {
	remaining := s.cb.attachedCount.Add(^uint32(0))
	err := unix.Munmap(s.bytes)
	if cerr := unix.Close(s.fd); err == nil {
		err = cerr
	}
	if (unlink || s.unlink) && remaining == 0 {
		if uerr := unix.Unlink(s.path); err == nil {
			err = uerr
		}
	}
	return err
}
