// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// reviews.Store.  There is no persistence and no sharing between
// processes.  The entire store is behind a single global mutex to
// protect against concurrent updates; in some cases this can limit
// performance in the name of correctness.
//
// This is mostly intended as a simple reference implementation of
// Store that can be used for testing, including in-process testing of
// the workflow and web layers.  It is tuned for correctness, not
// performance or scalability.
//
// Objects are copied on the way in and on the way out, so a caller
// that changes an object it got from the store sees no effect until
// it calls the matching Save method.
package memory

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/reviews"
)

// Store is the in-memory review store.
type Store struct {
	sem   sync.Mutex
	clock clock.Clock

	// seq holds the last ID assigned for each kind of object.
	seq map[reviews.Kind]int

	users              map[string]*reviews.User
	groups             map[int]*reviews.Group
	repositories       map[int]*reviews.Repository
	reviewRequests     map[int]*reviews.ReviewRequest
	drafts             map[int]*reviews.Draft // by review request ID
	diffSets           map[int]*reviews.DiffSet
	fileDiffs          map[int]*reviews.FileDiff
	screenshots        map[int]*reviews.Screenshot
	reviews            map[int]*reviews.Review
	diffComments       map[int]*reviews.DiffComment
	screenshotComments map[int]*reviews.ScreenshotComment
	watches            map[watchKey]reviews.WatchEntry
}

type watchKey struct {
	username string
	kind     reviews.WatchKind
	objectID int
}

// New creates a new empty store using the system clock.
func New() *Store {
	return NewWithClock(clock.New())
}

// NewWithClock creates a new empty store using a specified time
// source, which stamps objects created without a timestamp.
func NewWithClock(clk clock.Clock) *Store {
	return &Store{
		clock:              clk,
		seq:                make(map[reviews.Kind]int),
		users:              make(map[string]*reviews.User),
		groups:             make(map[int]*reviews.Group),
		repositories:       make(map[int]*reviews.Repository),
		reviewRequests:     make(map[int]*reviews.ReviewRequest),
		drafts:             make(map[int]*reviews.Draft),
		diffSets:           make(map[int]*reviews.DiffSet),
		fileDiffs:          make(map[int]*reviews.FileDiff),
		screenshots:        make(map[int]*reviews.Screenshot),
		reviews:            make(map[int]*reviews.Review),
		diffComments:       make(map[int]*reviews.DiffComment),
		screenshotComments: make(map[int]*reviews.ScreenshotComment),
		watches:            make(map[watchKey]reviews.WatchEntry),
	}
}

// lock takes the global lock.  Pair this with unlock, as
//
//	s.lock()
//	defer s.unlock()
func (s *Store) lock() {
	s.sem.Lock()
}

func (s *Store) unlock() {
	s.sem.Unlock()
}

// nextID allocates an ID for a new object.  The caller must hold the
// global lock.
func (s *Store) nextID(kind reviews.Kind) int {
	s.seq[kind]++
	return s.seq[kind]
}

func notFound(kind reviews.Kind, key interface{}) error {
	return reviews.ErrNotFound{Kind: kind, Key: key}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}
