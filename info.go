// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import (
	"time"

	"github.com/pkg/errors"
)

// Info is a point-in-time snapshot of a mailslot's state.
type Info struct {
	// MaxMessageSize is the configured per-message size ceiling.
	MaxMessageSize int
	// ReadTimeout is the current deadline policy for queued reads.
	ReadTimeout time.Duration
	// HasMessage reports whether at least one message is buffered.
	HasMessage bool
	// NextMessageSize is the size of the next buffered message,
	// or NoMessage if the mailslot is empty.
	NextMessageSize int
}

// Info reports the mailslot's configuration and buffered-message state.
// Availability is always asked of the transport itself via a
// non-consuming peek; the call never blocks and never touches
// the pending-read queue.
func (m *Mailslot) Info() (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return Info{}, ErrClosed
	}
	info := Info{
		MaxMessageSize:  m.maxMsgSize,
		ReadTimeout:     m.readTimeout,
		NextMessageSize: NoMessage,
	}
	has, err := m.pair.HasMessage()
	if err != nil {
		return Info{}, errors.WithMessage(err, "failed to query mailslot transport")
	}
	info.HasMessage = has
	size, ok, err := m.pair.NextMessageSize()
	if err != nil {
		return Info{}, errors.WithMessage(err, "failed to peek mailslot transport")
	}
	if ok {
		info.NextMessageSize = size
	}
	return info, nil
}

// SetReadTimeout changes the deadline policy for subsequently
// queued reads. Requests already queued keep their deadlines.
func (m *Mailslot) SetReadTimeout(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ErrClosed
	}
	m.readTimeout = d
	return nil
}
