// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"sort"

	"github.com/diffeo/go-reviewapi/reviews"
)

func copyDiffSet(ds *reviews.DiffSet) *reviews.DiffSet {
	c := *ds
	return &c
}

func copyFileDiff(fd *reviews.FileDiff) *reviews.FileDiff {
	c := *fd
	if fd.Diff != nil {
		c.Diff = append([]byte(nil), fd.Diff...)
	}
	return &c
}

func copyScreenshot(ss *reviews.Screenshot) *reviews.Screenshot {
	c := *ss
	return &c
}

// DiffSets returns the published diffsets of a review request in
// revision order.
func (s *Store) DiffSets(reviewRequestID int) ([]*reviews.DiffSet, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.DiffSet
	for _, ds := range s.diffSets {
		if ds.ReviewRequestID == reviewRequestID && ds.Published() {
			result = append(result, copyDiffSet(ds))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Revision < result[j].Revision
	})
	return result, nil
}

// DiffSet fetches a diffset by ID, published or not.
func (s *Store) DiffSet(id int) (*reviews.DiffSet, error) {
	s.lock()
	defer s.unlock()
	ds, present := s.diffSets[id]
	if !present {
		return nil, notFound(reviews.KindDiffSet, id)
	}
	return copyDiffSet(ds), nil
}

// CreateDiffSet stores a diffset and its files.
func (s *Store) CreateDiffSet(ds *reviews.DiffSet, files []*reviews.FileDiff) error {
	s.lock()
	defer s.unlock()
	if ds.Timestamp.IsZero() {
		ds.Timestamp = s.clock.Now()
	}
	ds.ID = s.nextID(reviews.KindDiffSet)
	s.diffSets[ds.ID] = copyDiffSet(ds)
	for _, fd := range files {
		fd.ID = s.nextID(reviews.KindFileDiff)
		fd.DiffSetID = ds.ID
		s.fileDiffs[fd.ID] = copyFileDiff(fd)
	}
	return nil
}

// SaveDiffSet overwrites an existing diffset.
func (s *Store) SaveDiffSet(ds *reviews.DiffSet) error {
	s.lock()
	defer s.unlock()
	if _, present := s.diffSets[ds.ID]; !present {
		return notFound(reviews.KindDiffSet, ds.ID)
	}
	s.diffSets[ds.ID] = copyDiffSet(ds)
	return nil
}

// DeleteDiffSet removes a diffset and its files.
func (s *Store) DeleteDiffSet(id int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.diffSets[id]; !present {
		return notFound(reviews.KindDiffSet, id)
	}
	s.deleteDiffSet(id)
	return nil
}

// deleteDiffSet removes a diffset, its files, and comments on them.
// The caller must hold the global lock.
func (s *Store) deleteDiffSet(id int) {
	delete(s.diffSets, id)
	for fdID, fd := range s.fileDiffs {
		if fd.DiffSetID != id {
			continue
		}
		delete(s.fileDiffs, fdID)
		for cID, c := range s.diffComments {
			if c.FileDiffID == fdID || c.InterFileDiffID == fdID {
				delete(s.diffComments, cID)
			}
		}
	}
}

// FileDiffs returns the files of a diffset in ID order.
func (s *Store) FileDiffs(diffSetID int) ([]*reviews.FileDiff, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.FileDiff
	for _, fd := range s.fileDiffs {
		if fd.DiffSetID == diffSetID {
			result = append(result, copyFileDiff(fd))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// FileDiff fetches a file diff by ID.
func (s *Store) FileDiff(id int) (*reviews.FileDiff, error) {
	s.lock()
	defer s.unlock()
	fd, present := s.fileDiffs[id]
	if !present {
		return nil, notFound(reviews.KindFileDiff, id)
	}
	return copyFileDiff(fd), nil
}

// Screenshot fetches a screenshot by ID.
func (s *Store) Screenshot(id int) (*reviews.Screenshot, error) {
	s.lock()
	defer s.unlock()
	ss, present := s.screenshots[id]
	if !present {
		return nil, notFound(reviews.KindScreenshot, id)
	}
	return copyScreenshot(ss), nil
}

// Screenshots returns every screenshot of a review request in ID
// order.
func (s *Store) Screenshots(reviewRequestID int) ([]*reviews.Screenshot, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.Screenshot
	for _, ss := range s.screenshots {
		if ss.ReviewRequestID == reviewRequestID {
			result = append(result, copyScreenshot(ss))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateScreenshot stores a new screenshot.
func (s *Store) CreateScreenshot(ss *reviews.Screenshot) error {
	s.lock()
	defer s.unlock()
	ss.ID = s.nextID(reviews.KindScreenshot)
	s.screenshots[ss.ID] = copyScreenshot(ss)
	return nil
}

// SaveScreenshot overwrites an existing screenshot.
func (s *Store) SaveScreenshot(ss *reviews.Screenshot) error {
	s.lock()
	defer s.unlock()
	if _, present := s.screenshots[ss.ID]; !present {
		return notFound(reviews.KindScreenshot, ss.ID)
	}
	s.screenshots[ss.ID] = copyScreenshot(ss)
	return nil
}
