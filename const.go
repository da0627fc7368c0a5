// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import "time"

// Prefix is the reserved namespace token. Every mailslot name must be
// case-insensitively prefixed with it and longer than it.
const Prefix = `mailslot\`

// access mask for opening a writer.
const (
	AccessRead  = 0x00000001
	AccessWrite = 0x00000002
)

// sharing mask for opening a writer.
const (
	// ShareRead must be requested by every open call:
	// the reader always shares the slot with its writers.
	ShareRead = 0x00000001
	// ShareWrite permits other write-capable attachments to coexist.
	ShareWrite = 0x00000002
)

// WaitForever makes queued reads wait for a message indefinitely.
const WaitForever = time.Duration(-1)

// NoMessage is reported as Info.NextMessageSize, when no message is buffered.
const NoMessage = -1

// Operation is the kind of an asynchronous request.
type Operation int

// async operation kinds. Mailslots complete read requests only.
const (
	OpRead Operation = iota
	OpWrite
)
