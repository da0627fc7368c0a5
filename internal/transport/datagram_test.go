// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatagramPairRoundtrip(t *testing.T) {
	a := assert.New(t)
	p, err := NewDatagramPair()
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Send([]byte("abc"))
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := p.Recv(buf)
	a.NoError(err)
	a.Equal("abc", string(buf[:n]))
}

func TestDatagramPairNonBlocking(t *testing.T) {
	a := assert.New(t)
	p, err := NewDatagramPair()
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Recv(make([]byte, 8))
	a.True(IsWouldBlock(err))
}

func TestDatagramPairHasMessage(t *testing.T) {
	a := assert.New(t)
	p, err := NewDatagramPair()
	require.NoError(t, err)
	defer p.Close()
	has, err := p.HasMessage()
	require.NoError(t, err)
	a.False(has)
	_, err = p.Send([]byte("x"))
	require.NoError(t, err)
	has, err = p.HasMessage()
	require.NoError(t, err)
	a.True(has)
	// asking is not consuming.
	has, err = p.HasMessage()
	require.NoError(t, err)
	a.True(has)
}

func TestDatagramPairPeekSize(t *testing.T) {
	a := assert.New(t)
	p, err := NewDatagramPair()
	require.NoError(t, err)
	defer p.Close()
	_, ok, err := p.NextMessageSize()
	require.NoError(t, err)
	a.False(ok)
	_, err = p.Send([]byte("four"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		size, ok, err := p.NextMessageSize()
		require.NoError(t, err)
		a.True(ok)
		a.Equal(4, size)
	}
	buf := make([]byte, 8)
	n, err := p.Recv(buf)
	require.NoError(t, err)
	a.Equal(4, n)
}

func TestDatagramPairBoundaries(t *testing.T) {
	a := assert.New(t)
	p, err := NewDatagramPair()
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Send([]byte("one"))
	require.NoError(t, err)
	_, err = p.Send([]byte("two"))
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := p.Recv(buf)
	require.NoError(t, err)
	a.Equal("one", string(buf[:n]))
	n, err = p.Recv(buf)
	require.NoError(t, err)
	a.Equal("two", string(buf[:n]))
}
