// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package mailslot

import "github.com/pkg/errors"

// Errors, returned by the package. Operations annotate them with
// details; use errors.Cause to compare.
var (
	// ErrInvalidName means the name is not in the mailslot namespace.
	ErrInvalidName = errors.New("invalid mailslot name")
	// ErrNameCollision means the name already denotes a live mailslot.
	ErrNameCollision = errors.New("mailslot name already exists")
	// ErrNotFound means no live mailslot is bound to the name.
	ErrNotFound = errors.New("mailslot does not exist")
	// ErrTypeMismatch means the name denotes an object of another kind.
	ErrTypeMismatch = errors.New("object type mismatch")
	// ErrSharingViolation means writer admission was refused.
	ErrSharingViolation = errors.New("sharing violation")
	// ErrInvalidOperation means the async operation kind is not supported.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrIOTimeout means a read can never be satisfied: the mailslot has no writers.
	ErrIOTimeout = errors.New("i/o timeout")
	// ErrAccessDenied means the handle was not opened with the required access.
	ErrAccessDenied = errors.New("access denied")
	// ErrClosed means the object has already been closed.
	ErrClosed = errors.New("object is closed")
	// ErrNoMessage means the mailslot buffer is currently empty.
	ErrNoMessage = errors.New("no message available")
)
