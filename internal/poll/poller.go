// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

// Package poll multiplexes level-triggered readiness of raw descriptors
// and deadline timers onto a single dispatch goroutine.
// Registered callbacks and expired timers are always invoked from that
// one goroutine, never concurrently with each other.
package poll

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// In is the "data available to read" interest/event bit.
const In = int16(unix.POLLIN)

// Poller watches a set of descriptors with poll(2).
// The poll loop is woken up via a self-pipe whenever interests
// or timers change.
type Poller struct {
	mu          sync.Mutex
	descs       map[int]*Desc
	timers      timerHeap
	wakeR       int
	wakeW       int
	wakePending bool
	closed      bool
	loopDone    chan struct{}
}

// Desc is a single registered descriptor.
type Desc struct {
	p      *Poller
	fd     int
	events int16
	ready  func(revents int16)
	closed bool
}

// Timer is a pending deadline registered with AfterFunc.
type Timer struct {
	p       *Poller
	when    time.Time
	fn      func()
	index   int
	stopped bool
	fired   bool
}

// New creates a poller and starts its dispatch goroutine.
func New() (*Poller, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, errors.Wrap(err, "failed to create wakeup pipe")
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, errors.Wrap(err, "failed to make wakeup pipe non-blocking")
		}
		unix.CloseOnExec(fd)
	}
	p := &Poller{
		descs:    make(map[int]*Desc),
		wakeR:    fds[0],
		wakeW:    fds[1],
		loopDone: make(chan struct{}),
	}
	go p.loop()
	return p, nil
}

// Add registers fd with the poller. The descriptor starts with no
// interests; use SetEvents to arm it. ready is called from the
// dispatch goroutine with the events reported by poll(2).
func (p *Poller) Add(fd int, ready func(revents int16)) (*Desc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("poller is closed")
	}
	if _, ok := p.descs[fd]; ok {
		return nil, errors.Errorf("fd %d is already registered", fd)
	}
	d := &Desc{p: p, fd: fd, ready: ready}
	p.descs[fd] = d
	return d, nil
}

// SetEvents replaces the set of events the descriptor is watched for.
// Zero means the descriptor is kept registered, but not watched.
// It is a no-op on a closed descriptor.
func (d *Desc) SetEvents(events int16) {
	p := d.p
	p.mu.Lock()
	if !d.closed && d.events != events {
		d.events = events
		p.wakeLocked()
	}
	p.mu.Unlock()
}

// Close unregisters the descriptor. The caller remains the owner
// of the underlying fd and must close it itself.
func (d *Desc) Close() error {
	p := d.p
	p.mu.Lock()
	if !d.closed {
		d.closed = true
		delete(p.descs, d.fd)
		p.wakeLocked()
	}
	p.mu.Unlock()
	return nil
}

// AfterFunc schedules fn to run on the dispatch goroutine
// after the given duration.
func (p *Poller) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{p: p, when: time.Now().Add(d), fn: fn}
	p.mu.Lock()
	heap.Push(&p.timers, t)
	p.wakeLocked()
	p.mu.Unlock()
	return t
}

// Stop cancels the timer. It returns false, if the timer
// has already fired or has been stopped.
func (t *Timer) Stop() bool {
	p := t.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&p.timers, t.index)
	}
	return true
}

// Close terminates the dispatch goroutine and releases the wakeup pipe.
// Registered descriptors are discarded without callbacks.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.wakeLocked()
	p.mu.Unlock()
	<-p.loopDone
	unix.Close(p.wakeR)
	unix.Close(p.wakeW)
	return nil
}

func (p *Poller) wakeLocked() {
	if p.wakePending {
		return
	}
	p.wakePending = true
	unix.Write(p.wakeW, []byte{0})
}

func (p *Poller) drainWake() {
	var buf [16]byte
	for {
		if _, err := unix.Read(p.wakeR, buf[:]); err != nil {
			break
		}
	}
	p.mu.Lock()
	p.wakePending = false
	p.mu.Unlock()
}

func (p *Poller) loop() {
	defer close(p.loopDone)
	var pfds []unix.PollFd
	var watched []*Desc
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		pfds = append(pfds[:0], unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN})
		watched = append(watched[:0], nil)
		for _, d := range p.descs {
			if d.events != 0 {
				pfds = append(pfds, unix.PollFd{Fd: int32(d.fd), Events: d.events})
				watched = append(watched, d)
			}
		}
		timeout := -1
		if len(p.timers) > 0 {
			left := time.Until(p.timers[0].when)
			if left < 0 {
				left = 0
			}
			timeout = int(left / time.Millisecond)
			if left%time.Millisecond != 0 {
				timeout++
			}
		}
		p.mu.Unlock()

		if _, err := unix.Poll(pfds, timeout); err != nil && err != unix.EINTR {
			// EBADF here means a descriptor was closed while being
			// watched. The owner deregisters it right after, so
			// retrying after a wakeup round-trip is enough.
			time.Sleep(time.Millisecond)
		}
		if pfds[0].Revents != 0 {
			p.drainWake()
		}
		p.fireTimers()
		for i := 1; i < len(pfds); i++ {
			if pfds[i].Revents == 0 {
				continue
			}
			d := watched[i]
			p.mu.Lock()
			dead := d.closed
			p.mu.Unlock()
			if !dead {
				d.ready(pfds[i].Revents)
			}
		}
	}
}

func (p *Poller) fireTimers() {
	now := time.Now()
	var fns []func()
	p.mu.Lock()
	for len(p.timers) > 0 && !p.timers[0].when.After(now) {
		t := heap.Pop(&p.timers).(*Timer)
		t.fired = true
		fns = append(fns, t.fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *timerHeap) Push(x interface{}) { t := x.(*Timer); t.index = len(*h); *h = append(*h, t) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
