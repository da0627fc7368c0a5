// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import (
	"strings"
	"sync"
	"time"

	"bitbucket.org/avd/go-mailslot/internal/namespace"
	"bitbucket.org/avd/go-mailslot/internal/poll"
	"bitbucket.org/avd/go-mailslot/internal/transport"

	"github.com/pkg/errors"
)

// the process-wide directory of live mailslots and the shared
// readiness engine all of them plug into.
var (
	slots = namespace.New()

	pollerOnce sync.Once
	pollerInst *poll.Poller
	pollerErr  error
)

func getPoller() (*poll.Poller, error) {
	pollerOnce.Do(func() {
		pollerInst, pollerErr = poll.New()
	})
	if pollerErr != nil {
		return nil, errors.WithMessage(pollerErr, "readiness poller is unavailable")
	}
	return pollerInst, nil
}

// Mailslot is the reader side of the slot. It owns both ends of the
// underlying datagram channel; writers only ever reach the write end
// through it. All state is guarded by mu, which is shared with the
// writers and the pending reads of this slot.
type Mailslot struct {
	mu          sync.Mutex
	name        string
	maxMsgSize  int
	readTimeout time.Duration
	pair        *transport.DatagramPair
	desc        *poll.Desc
	poller      *poll.Poller
	writers     []*Writer
	readQ       []*PendingRead
	refs        int
	handleClose bool
	destroyed   bool
}

func checkName(name string) error {
	if len(name) <= len(Prefix) || !strings.EqualFold(name[:len(Prefix)], Prefix) {
		return errors.WithMessagef(ErrInvalidName, "name must begin with %q", Prefix)
	}
	return nil
}

// Create creates a new mailslot and binds it to name.
//	name - mailslot name, case-insensitively prefixed with Prefix.
//	maxMsgSize - advisory per-message size ceiling; not enforced.
//	readTimeout - deadline for queued reads, or WaitForever.
// There can be only one mailslot to read from: if the name is already
// bound to a live mailslot, Create fails with ErrNameCollision.
func Create(name string, maxMsgSize int, readTimeout time.Duration) (*Mailslot, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	p, err := getPoller()
	if err != nil {
		return nil, err
	}
	m := &Mailslot{
		name:        name,
		maxMsgSize:  maxMsgSize,
		readTimeout: readTimeout,
		poller:      p,
		refs:        1,
	}
	if !slots.Insert(name, m) {
		return nil, errors.WithMessagef(ErrNameCollision, "mailslot %q already has a reader", name)
	}
	if m.pair, err = transport.NewDatagramPair(); err != nil {
		slots.Remove(name)
		return nil, errors.WithMessage(err, "failed to allocate mailslot transport")
	}
	if m.desc, err = p.Add(m.pair.ReadFd(), m.onReady); err != nil {
		m.pair.Close()
		slots.Remove(name)
		return nil, errors.WithMessage(err, "failed to register mailslot transport")
	}
	return m, nil
}

// Name returns the name the mailslot was created with.
func (m *Mailslot) Name() string {
	return m.name
}

// MaxMessageSize returns the configured per-message size ceiling.
func (m *Mailslot) MaxMessageSize() int {
	return m.maxMsgSize
}

// ReadTimeout returns the current deadline policy for queued reads.
func (m *Mailslot) ReadTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readTimeout
}

// WriterCount returns the number of currently attached writers.
func (m *Mailslot) WriterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writers)
}

// ReadMessage reads a single buffered message into b without blocking.
// A message longer than b is truncated. It returns ErrNoMessage,
// if the mailslot is currently empty.
func (m *Mailslot) ReadMessage(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handleClose || m.destroyed {
		return 0, ErrClosed
	}
	n, err := m.pair.Recv(b)
	if transport.IsWouldBlock(err) {
		return 0, ErrNoMessage
	}
	return n, err
}

// Close releases the reader's reference to the mailslot.
// The object itself is destroyed once the last writer detaches;
// destruction cancels all pending reads, releases both transport
// endpoints and unbinds the name.
func (m *Mailslot) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handleClose {
		return ErrClosed
	}
	m.handleClose = true
	m.releaseLocked()
	return nil
}

func (m *Mailslot) releaseLocked() {
	m.refs--
	if m.refs == 0 {
		m.destroyLocked()
	}
}

func (m *Mailslot) destroyLocked() {
	m.cancelQueueLocked()
	slots.Remove(m.name)
	m.desc.Close()
	m.pair.Close()
	m.destroyed = true
}
