// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package transport

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DatagramPair is a connected pair of local datagram sockets.
// It preserves message boundaries and never blocks:
// both ends are put into non-blocking mode on creation.
// The read end belongs to the single reader of the channel,
// the write end is shared by all its writers.
type DatagramPair struct {
	readFd  int
	writeFd int
}

// NewDatagramPair creates a connected non-blocking socketpair.
func NewDatagramPair() (*DatagramPair, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socketpair failed")
	}
	for _, fd := range fds {
		if err = unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, errors.Wrap(err, "failed to make socket non-blocking")
		}
		unix.CloseOnExec(fd)
	}
	return &DatagramPair{readFd: fds[1], writeFd: fds[0]}, nil
}

// ReadFd returns the descriptor of the read end.
func (p *DatagramPair) ReadFd() int {
	return p.readFd
}

// WriteFd returns the descriptor of the write end.
func (p *DatagramPair) WriteFd() int {
	return p.writeFd
}

// HasMessage polls the read end with a zero timeout and reports
// whether at least one datagram is currently buffered.
func (p *DatagramPair) HasMessage() (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(p.readFd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(pfd, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, errors.Wrap(err, "poll failed")
		}
		return n == 1 && pfd[0].Revents&unix.POLLIN != 0, nil
	}
}

// NextMessageSize peeks the size of the next buffered datagram
// without consuming it. It returns ok = false, if the buffer is empty.
func (p *DatagramPair) NextMessageSize() (size int, ok bool, err error) {
	for {
		n, _, err := unix.Recvfrom(p.readFd, nil, unix.MSG_PEEK|unix.MSG_TRUNC)
		if err == unix.EINTR {
			continue
		}
		if IsWouldBlock(err) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, errors.Wrap(err, "peek failed")
		}
		return n, true, nil
	}
}

// Send writes one datagram into the channel.
func (p *DatagramPair) Send(b []byte) (int, error) {
	for {
		err := unix.Send(p.writeFd, b, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, "send failed")
		}
		return len(b), nil
	}
}

// Recv reads one datagram from the channel. A message longer
// than b is truncated to len(b), as datagram sockets do.
func (p *DatagramPair) Recv(b []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(p.readFd, b, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, "recv failed")
		}
		return n, nil
	}
}

// Close releases both ends of the pair.
func (p *DatagramPair) Close() error {
	err1 := unix.Close(p.readFd)
	err2 := unix.Close(p.writeFd)
	p.readFd, p.writeFd = -1, -1
	if err1 != nil {
		return errors.Wrap(err1, "failed to close read end")
	}
	if err2 != nil {
		return errors.Wrap(err2, "failed to close write end")
	}
	return nil
}

// IsWouldBlock reports whether err denotes an operation,
// which would have blocked on a non-blocking descriptor.
func IsWouldBlock(err error) bool {
	errno, ok := errors.Cause(err).(syscall.Errno)
	return ok && (errno == unix.EAGAIN || errno == unix.EWOULDBLOCK)
}
