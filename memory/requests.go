// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"sort"

	"github.com/diffeo/go-reviewapi/reviews"
)

func copyReviewRequest(rr *reviews.ReviewRequest) *reviews.ReviewRequest {
	c := *rr
	c.BugsClosed = cloneStrings(rr.BugsClosed)
	c.TargetGroups = cloneStrings(rr.TargetGroups)
	c.TargetPeople = cloneStrings(rr.TargetPeople)
	if rr.Changes != nil {
		c.Changes = append([]reviews.ChangeDescription(nil), rr.Changes...)
	}
	return &c
}

func copyDraft(d *reviews.Draft) *reviews.Draft {
	c := *d
	c.BugsClosed = cloneStrings(d.BugsClosed)
	c.TargetGroups = cloneStrings(d.TargetGroups)
	c.TargetPeople = cloneStrings(d.TargetPeople)
	c.ScreenshotIDs = cloneInts(d.ScreenshotIDs)
	return &c
}

// ReviewRequest fetches a review request by ID.
func (s *Store) ReviewRequest(id int) (*reviews.ReviewRequest, error) {
	s.lock()
	defer s.unlock()
	rr, present := s.reviewRequests[id]
	if !present {
		return nil, notFound(reviews.KindReviewRequest, id)
	}
	return copyReviewRequest(rr), nil
}

// matchingRequests returns the review requests matching q, newest
// first, without paging.  The caller must hold the global lock.
func (s *Store) matchingRequests(q *reviews.ReviewRequestQuery) []*reviews.ReviewRequest {
	var result []*reviews.ReviewRequest
	for _, rr := range s.reviewRequests {
		if q.Match(rr, s.groupMembers) {
			result = append(result, rr)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.LastUpdated.Equal(b.LastUpdated) {
			return a.LastUpdated.After(b.LastUpdated)
		}
		return a.ID > b.ID
	})
	return result
}

// ReviewRequests returns one page of review requests matching a
// query, most recently updated first.
func (s *Store) ReviewRequests(q *reviews.ReviewRequestQuery) ([]*reviews.ReviewRequest, error) {
	s.lock()
	defer s.unlock()
	all := s.matchingRequests(q)
	lo, hi := q.Page(len(all))
	result := make([]*reviews.ReviewRequest, 0, hi-lo)
	for _, rr := range all[lo:hi] {
		result = append(result, copyReviewRequest(rr))
	}
	return result, nil
}

// CountReviewRequests returns the number of review requests matching
// a query, ignoring paging.
func (s *Store) CountReviewRequests(q *reviews.ReviewRequestQuery) (int, error) {
	s.lock()
	defer s.unlock()
	return len(s.matchingRequests(q)), nil
}

// CreateReviewRequest stores a new review request.
func (s *Store) CreateReviewRequest(rr *reviews.ReviewRequest) error {
	s.lock()
	defer s.unlock()
	if rr.ChangeNum != 0 {
		for _, other := range s.reviewRequests {
			if other.RepositoryID == rr.RepositoryID && other.ChangeNum == rr.ChangeNum {
				return reviews.ErrChangeNumberInUse{ReviewRequestID: other.ID}
			}
		}
	}
	now := s.clock.Now()
	if rr.TimeAdded.IsZero() {
		rr.TimeAdded = now
	}
	if rr.LastUpdated.IsZero() {
		rr.LastUpdated = rr.TimeAdded
	}
	rr.ID = s.nextID(reviews.KindReviewRequest)
	s.reviewRequests[rr.ID] = copyReviewRequest(rr)
	return nil
}

// SaveReviewRequest overwrites an existing review request.
func (s *Store) SaveReviewRequest(rr *reviews.ReviewRequest) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviewRequests[rr.ID]; !present {
		return notFound(reviews.KindReviewRequest, rr.ID)
	}
	s.reviewRequests[rr.ID] = copyReviewRequest(rr)
	return nil
}

// DeleteReviewRequest removes a review request and everything that
// belongs to it.
func (s *Store) DeleteReviewRequest(id int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviewRequests[id]; !present {
		return notFound(reviews.KindReviewRequest, id)
	}
	delete(s.reviewRequests, id)
	delete(s.drafts, id)
	for dsID, ds := range s.diffSets {
		if ds.ReviewRequestID == id {
			s.deleteDiffSet(dsID)
		}
	}
	for ssID, ss := range s.screenshots {
		if ss.ReviewRequestID == id {
			delete(s.screenshots, ssID)
		}
	}
	for rID, r := range s.reviews {
		if r.ReviewRequestID == id {
			s.deleteReview(rID)
		}
	}
	for key := range s.watches {
		if key.kind == reviews.WatchReviewRequest && key.objectID == id {
			delete(s.watches, key)
		}
	}
	return nil
}

// Draft fetches the draft of a review request.
func (s *Store) Draft(reviewRequestID int) (*reviews.Draft, error) {
	s.lock()
	defer s.unlock()
	d, present := s.drafts[reviewRequestID]
	if !present {
		return nil, notFound(reviews.KindDraft, reviewRequestID)
	}
	return copyDraft(d), nil
}

// CreateDraft stores d unless its review request already has a draft.
func (s *Store) CreateDraft(d *reviews.Draft) (*reviews.Draft, bool, error) {
	s.lock()
	defer s.unlock()
	if _, present := s.reviewRequests[d.ReviewRequestID]; !present {
		return nil, false, notFound(reviews.KindReviewRequest, d.ReviewRequestID)
	}
	if existing, present := s.drafts[d.ReviewRequestID]; present {
		return copyDraft(existing), false, nil
	}
	if d.LastUpdated.IsZero() {
		d.LastUpdated = s.clock.Now()
	}
	d.ID = s.nextID(reviews.KindDraft)
	s.drafts[d.ReviewRequestID] = copyDraft(d)
	return copyDraft(d), true, nil
}

// SaveDraft overwrites the draft of a review request.
func (s *Store) SaveDraft(d *reviews.Draft) error {
	s.lock()
	defer s.unlock()
	existing, present := s.drafts[d.ReviewRequestID]
	if !present || existing.ID != d.ID {
		return notFound(reviews.KindDraft, d.ReviewRequestID)
	}
	s.drafts[d.ReviewRequestID] = copyDraft(d)
	return nil
}

// DeleteDraft removes the draft of a review request.
func (s *Store) DeleteDraft(reviewRequestID int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.drafts[reviewRequestID]; !present {
		return notFound(reviews.KindDraft, reviewRequestID)
	}
	delete(s.drafts, reviewRequestID)
	return nil
}
