// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"sort"

	"github.com/diffeo/go-reviewapi/reviews"
)

// Watches lists a user's watch entries of one kind in object ID
// order.
func (s *Store) Watches(username string, kind reviews.WatchKind) ([]reviews.WatchEntry, error) {
	s.lock()
	defer s.unlock()
	var result []reviews.WatchEntry
	for key, e := range s.watches {
		if key.username == username && key.kind == kind {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ObjectID < result[j].ObjectID
	})
	return result, nil
}

// AddWatch stores a watch entry.
func (s *Store) AddWatch(e reviews.WatchEntry) error {
	s.lock()
	defer s.unlock()
	s.watches[watchKey{e.Username, e.Kind, e.ObjectID}] = e
	return nil
}

// RemoveWatch deletes a watch entry if it exists.
func (s *Store) RemoveWatch(username string, kind reviews.WatchKind, objectID int) error {
	s.lock()
	defer s.unlock()
	delete(s.watches, watchKey{username, kind, objectID})
	return nil
}
