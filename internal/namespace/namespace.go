// Copyright 2017 Aleksandr Demakin. All rights reserved.

// Package namespace implements a process-scoped directory
// of live named objects.
package namespace

import "sync"

// Namespace maps names to objects with insert-if-absent semantics.
// Values are opaque; a caller looking up a name must check
// that the object is of the kind it expects.
type Namespace struct {
	mu      sync.Mutex
	objects map[string]interface{}
}

// New returns an empty namespace.
func New() *Namespace {
	return &Namespace{objects: make(map[string]interface{})}
}

// Insert binds name to obj. It returns false and leaves the
// binding untouched, if the name is already bound.
func (n *Namespace) Insert(name string, obj interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.objects[name]; ok {
		return false
	}
	n.objects[name] = obj
	return true
}

// Find returns the object bound to name, if any.
func (n *Namespace) Find(name string) (interface{}, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	obj, ok := n.objects[name]
	return obj, ok
}

// Remove unbinds the name. Removing an unbound name is a no-op.
func (n *Namespace) Remove(name string) {
	n.mu.Lock()
	delete(n.objects, name)
	n.mu.Unlock()
}
