// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import (
	"bitbucket.org/avd/go-mailslot/internal/poll"

	"github.com/pkg/errors"
)

// ReadStatus is the terminal outcome of a pending read.
type ReadStatus int

// pending read outcomes.
const (
	// StatusPending means the request has not completed yet.
	StatusPending ReadStatus = iota
	// StatusAlerted means a message became available for this request.
	StatusAlerted
	// StatusTimeout means the request's deadline elapsed.
	StatusTimeout
	// StatusCancelled means the request was cancelled, explicitly
	// or by the mailslot's destruction.
	StatusCancelled
)

func (s ReadStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAlerted:
		return "alerted"
	case StatusTimeout:
		return "timeout"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// PendingRead is an accepted wait-for-message request.
// It completes exactly once; the outcome is delivered on Done.
type PendingRead struct {
	owner  *Mailslot
	done   chan ReadStatus
	timer  *poll.Timer
	status ReadStatus
}

// Done returns the channel the terminal status is delivered on.
// The channel is buffered: completion never blocks on a slow caller.
func (r *PendingRead) Done() <-chan ReadStatus {
	return r.done
}

// Status returns the current status of the request.
func (r *PendingRead) Status() ReadStatus {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	return r.status
}

// QueueAsync queues an asynchronous request against the mailslot.
// Only OpRead is supported. The call never blocks: it either fails
// immediately, or returns an accepted request, which later completes
// with StatusAlerted, StatusTimeout or StatusCancelled.
// A mailslot with no writers can never produce data, so in that case
// the request is rejected at once with ErrIOTimeout.
// Requests are completed in fifo order, one per readiness event.
func (m *Mailslot) QueueAsync(op Operation) (*PendingRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handleClose || m.destroyed {
		return nil, ErrClosed
	}
	if op != OpRead {
		return nil, errors.WithMessage(ErrInvalidOperation, "mailslots support async reads only")
	}
	if len(m.writers) == 0 {
		return nil, errors.WithMessage(ErrIOTimeout, "mailslot has no writers")
	}
	r := &PendingRead{owner: m, done: make(chan ReadStatus, 1)}
	if m.readTimeout >= 0 {
		r.timer = m.poller.AfterFunc(m.readTimeout, func() {
			m.expire(r)
		})
	}
	m.readQ = append(m.readQ, r)
	// serve the head at once, if a message is already buffered.
	if has, err := m.pair.HasMessage(); err == nil && has {
		m.completeHeadLocked()
	}
	m.armLocked()
	return r, nil
}

// QueueRead is a shorthand for QueueAsync(OpRead).
func (m *Mailslot) QueueRead() (*PendingRead, error) {
	return m.QueueAsync(OpRead)
}

// CancelAsync completes every pending read with StatusCancelled
// and clears the queue.
func (m *Mailslot) CancelAsync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelQueueLocked()
	if !m.destroyed {
		m.armLocked()
	}
}

// onReady runs on the poller goroutine whenever the transport
// reports readiness. Exactly the head of the queue is completed
// per event; the remaining waiters wait for the next one.
func (m *Mailslot) onReady(revents int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	if revents&poll.In != 0 {
		m.completeHeadLocked()
	}
	m.armLocked()
}

// expire runs on the poller goroutine when a request's deadline elapses.
func (m *Mailslot) expire(r *PendingRead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.status != StatusPending {
		return
	}
	for i, q := range m.readQ {
		if q == r {
			m.readQ = append(m.readQ[:i], m.readQ[i+1:]...)
			break
		}
	}
	m.completeLocked(r, StatusTimeout)
	if !m.destroyed {
		m.armLocked()
	}
}

func (m *Mailslot) completeHeadLocked() {
	if len(m.readQ) == 0 {
		return
	}
	head := m.readQ[0]
	m.readQ = m.readQ[1:]
	m.completeLocked(head, StatusAlerted)
}

func (m *Mailslot) completeLocked(r *PendingRead, status ReadStatus) {
	if r.status != StatusPending {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.status = status
	r.done <- status
}

func (m *Mailslot) cancelQueueLocked() {
	for _, r := range m.readQ {
		m.completeLocked(r, StatusCancelled)
	}
	m.readQ = nil
}

// armLocked recomputes poll interests: the transport is watched
// only while at least one waiter is queued.
func (m *Mailslot) armLocked() {
	if len(m.readQ) > 0 {
		m.desc.SetEvents(poll.In)
	} else {
		m.desc.SetEvents(0)
	}
}
