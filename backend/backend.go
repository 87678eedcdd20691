// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a review store
// based on command-line flags.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diffeo/go-reviewapi/cache"
	"github.com/diffeo/go-reviewapi/memory"
	"github.com/diffeo/go-reviewapi/postgres"
	"github.com/diffeo/go-reviewapi/reviews"
)

// Backend describes user-visible parameters to store review data.
// This implements the flag.Value interface, and so a typical use is
//
//	func main() {
//		backend := backend.Backend{Implementation: "memory"}
//		flag.Var(&backend, "backend", "impl:address of review storage")
//		flag.Parse()
//		store, err := backend.Store()
//	}
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string

	// CacheSize, if positive, puts an LRU cache of that many
	// objects in front of the store.
	CacheSize int
}

var implementations = []string{"memory", "postgres"}

// Store creates a new review store.  This generally should be only
// called once.  If the backend has in-process state, such as a
// database connection pool or an in-memory store, calling this
// multiple times will create multiple copies of that state.  In
// particular, if b.Implementation is "memory", multiple calls to this
// will create multiple independent review "worlds".
func (b *Backend) Store() (reviews.Store, error) {
	var (
		store reviews.Store
		err   error
	)
	switch b.Implementation {
	case "memory":
		store = memory.New()
	case "postgres":
		store, err = postgres.New(b.Address)
	default:
		err = fmt.Errorf("unknown review backend %q", b.Implementation)
	}
	if err != nil {
		return nil, err
	}
	if b.CacheSize > 0 {
		store = cache.New(store, b.CacheSize)
	}
	return store, nil
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Note that neither Set
// nor String attempts to validate the b.Address part of the string or
// attempts to actually make a connection.
func (b *Backend) Set(param string) error {
	if param == "" {
		return errors.New("must specify a backend type")
	}
	parts := strings.SplitN(param, ":", 2)
	impl := parts[0]
	known := false
	for _, name := range implementations {
		if name == impl {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown review backend %q (want one of %v)", impl, strings.Join(implementations, ", "))
	}
	b.Implementation = impl
	b.Address = ""
	if len(parts) == 2 {
		b.Address = parts[1]
	}
	return nil
}
