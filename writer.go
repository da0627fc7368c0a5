// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import "github.com/pkg/errors"

// Writer is a single attachment to an existing mailslot.
// It holds no transport resources of its own: messages go through
// the write endpoint owned by the mailslot. A writer keeps its
// mailslot alive until closed.
type Writer struct {
	m       *Mailslot
	access  int
	sharing int
	closed  bool // guarded by m.mu
}

// Open attaches a writer to the mailslot bound to name.
//	name - mailslot name, case-insensitively prefixed with Prefix.
//	access - combination of AccessRead and AccessWrite.
//	sharing - combination of ShareRead and ShareWrite; ShareRead is mandatory.
// Admission follows windows sharing rules: if any writers are already
// attached, a write-capable request is admitted only when both sides
// requested ShareWrite. The rule is evaluated once, at open time.
func Open(name string, access, sharing int) (*Writer, error) {
	if sharing&ShareRead == 0 {
		return nil, errors.WithMessage(ErrSharingViolation, "the mailslot reader must be shared")
	}
	obj, ok := slots.Find(name)
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "mailslot %q", name)
	}
	m, ok := obj.(*Mailslot)
	if !ok {
		return nil, errors.WithMessagef(ErrTypeMismatch, "%q is not a mailslot", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil, errors.WithMessagef(ErrNotFound, "mailslot %q", name)
	}
	if len(m.writers) > 0 {
		// all attached writers are mutually compatible,
		// so any one of them represents the set.
		rep := m.writers[0]
		if (access|rep.access)&AccessWrite != 0 &&
			!(sharing&ShareWrite != 0 && rep.sharing&ShareWrite != 0) {
			return nil, errors.WithMessage(ErrSharingViolation, "incompatible with an attached writer")
		}
	}
	w := &Writer{m: m, access: access, sharing: sharing}
	m.writers = append(m.writers, w)
	m.refs++
	return w, nil
}

// Access returns the access mask the writer was opened with.
func (w *Writer) Access() int {
	return w.access
}

// Sharing returns the sharing mask the writer was opened with.
func (w *Writer) Sharing() int {
	return w.sharing
}

// Write sends one message through the mailslot's shared write endpoint.
// The writer must have been opened with AccessWrite.
func (w *Writer) Write(b []byte) (int, error) {
	m := w.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.closed || m.destroyed {
		return 0, ErrClosed
	}
	if w.access&AccessWrite == 0 {
		return 0, errors.WithMessage(ErrAccessDenied, "writer was not opened for writing")
	}
	return m.pair.Send(b)
}

// Close detaches the writer from its mailslot and releases
// the mailslot reference it holds.
func (w *Writer) Close() error {
	m := w.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	for i, other := range m.writers {
		if other == w {
			m.writers = append(m.writers[:i], m.writers[i+1:]...)
			break
		}
	}
	m.releaseLocked()
	return nil
}
