// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package poll

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func newTestPipe(t *testing.T) (r, w int) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	for _, fd := range fds {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	return fds[0], fds[1]
}

func TestPollerReadiness(t *testing.T) {
	a := assert.New(t)
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	r, w := newTestPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	events := make(chan int16, 1)
	d, err := p.Add(r, func(revents int16) {
		select {
		case events <- revents:
		default:
		}
	})
	require.NoError(t, err)
	defer d.Close()
	d.SetEvents(In)
	// nothing to read yet.
	select {
	case <-events:
		t.Fatal("spurious readiness")
	case <-time.After(50 * time.Millisecond):
	}
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	select {
	case revents := <-events:
		a.NotZero(revents & In)
	case <-time.After(2 * time.Second):
		t.Fatal("no readiness event")
	}
}

func TestPollerDisarm(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	r, w := newTestPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	var mu sync.Mutex
	fired := 0
	d, err := p.Add(r, func(int16) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer d.Close()
	// data is buffered, but the descriptor is not armed.
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, fired)
	mu.Unlock()
}

func TestPollerLevelTriggered(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	r, w := newTestPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	events := make(chan struct{}, 16)
	var d *Desc
	d, err = p.Add(r, func(int16) {
		// one observation per event; disarm to stop the stream.
		d.SetEvents(0)
		events <- struct{}{}
	})
	require.NoError(t, err)
	defer d.Close()
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	d.SetEvents(In)
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event for buffered data")
	}
	// unconsumed data fires again once re-armed.
	d.SetEvents(In)
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event after re-arm")
	}
}

func TestAfterFunc(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	done := make(chan time.Time, 1)
	start := time.Now()
	p.AfterFunc(50*time.Millisecond, func() {
		done <- time.Now()
	})
	select {
	case fired := <-done:
		assert.True(t, fired.Sub(start) >= 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestAfterFuncOrder(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	order := make(chan int, 2)
	p.AfterFunc(200*time.Millisecond, func() { order <- 2 })
	p.AfterFunc(50*time.Millisecond, func() { order <- 1 })
	select {
	case first := <-order:
		assert.Equal(t, 1, first)
	case <-time.After(2 * time.Second):
		t.Fatal("timers did not fire")
	}
	select {
	case second := <-order:
		assert.Equal(t, 2, second)
	case <-time.After(2 * time.Second):
		t.Fatal("second timer did not fire")
	}
}

func TestTimerStop(t *testing.T) {
	a := assert.New(t)
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	fired := make(chan struct{}, 1)
	timer := p.AfterFunc(100*time.Millisecond, func() {
		fired <- struct{}{}
	})
	a.True(timer.Stop())
	a.False(timer.Stop())
	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDescCloseStopsCallbacks(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	r, w := newTestPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	fired := make(chan struct{}, 16)
	d, err := p.Add(r, func(int16) {
		fired <- struct{}{}
	})
	require.NoError(t, err)
	d.SetEvents(In)
	require.NoError(t, d.Close())
	// events on a deregistered descriptor are not delivered.
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	select {
	case <-fired:
		t.Fatal("callback after Close")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAddDuplicateFd(t *testing.T) {
	a := assert.New(t)
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	r, w := newTestPipe(t)
	defer unix.Close(r)
	defer unix.Close(w)
	d, err := p.Add(r, func(int16) {})
	require.NoError(t, err)
	defer d.Close()
	_, err = p.Add(r, func(int16) {})
	a.Error(err)
}
