// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"sort"

	"github.com/diffeo/go-reviewapi/reviews"
)

func copyReview(r *reviews.Review) *reviews.Review {
	c := *r
	return &c
}

func copyDiffComment(dc *reviews.DiffComment) *reviews.DiffComment {
	c := *dc
	return &c
}

func copyScreenshotComment(sc *reviews.ScreenshotComment) *reviews.ScreenshotComment {
	c := *sc
	return &c
}

// Review fetches a review or reply by ID.
func (s *Store) Review(id int) (*reviews.Review, error) {
	s.lock()
	defer s.unlock()
	r, present := s.reviews[id]
	if !present {
		return nil, notFound(reviews.KindReview, id)
	}
	return copyReview(r), nil
}

func matchReview(r *reviews.Review, q reviews.ReviewQuery) bool {
	if q.ReviewRequestID != 0 && r.ReviewRequestID != q.ReviewRequestID {
		return false
	}
	if !q.AnyBase && r.BaseReplyToID != q.BaseReplyToID {
		return false
	}
	if q.PublicOnly && !r.Public {
		return false
	}
	if q.User != "" && r.User != q.User {
		return false
	}
	return true
}

// Reviews returns the reviews matching a query in ID order.
func (s *Store) Reviews(q reviews.ReviewQuery) ([]*reviews.Review, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.Review
	for _, r := range s.reviews {
		if matchReview(r, q) {
			result = append(result, copyReview(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetOrCreateReview finds the pending review matching r, or stores r.
func (s *Store) GetOrCreateReview(r *reviews.Review) (*reviews.Review, bool, error) {
	s.lock()
	defer s.unlock()
	if _, present := s.reviewRequests[r.ReviewRequestID]; !present {
		return nil, false, notFound(reviews.KindReviewRequest, r.ReviewRequestID)
	}
	for _, other := range s.reviews {
		if !other.Public &&
			other.ReviewRequestID == r.ReviewRequestID &&
			other.User == r.User &&
			other.BaseReplyToID == r.BaseReplyToID {
			return copyReview(other), false, nil
		}
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.clock.Now()
	}
	r.ID = s.nextID(reviews.KindReview)
	s.reviews[r.ID] = copyReview(r)
	return copyReview(r), true, nil
}

// SaveReview overwrites an existing review.
func (s *Store) SaveReview(r *reviews.Review) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviews[r.ID]; !present {
		return notFound(reviews.KindReview, r.ID)
	}
	s.reviews[r.ID] = copyReview(r)
	return nil
}

// DeleteReview removes a review, its comments, and its replies.
func (s *Store) DeleteReview(id int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviews[id]; !present {
		return notFound(reviews.KindReview, id)
	}
	s.deleteReview(id)
	return nil
}

// deleteReview removes a review and everything hanging off it.  The
// caller must hold the global lock.
func (s *Store) deleteReview(id int) {
	delete(s.reviews, id)
	for cID, c := range s.diffComments {
		if c.ReviewID == id {
			delete(s.diffComments, cID)
		}
	}
	for cID, c := range s.screenshotComments {
		if c.ReviewID == id {
			delete(s.screenshotComments, cID)
		}
	}
	for rID, r := range s.reviews {
		if r.BaseReplyToID == id {
			s.deleteReview(rID)
		}
	}
}

// DiffComment fetches a diff comment by ID.
func (s *Store) DiffComment(id int) (*reviews.DiffComment, error) {
	s.lock()
	defer s.unlock()
	c, present := s.diffComments[id]
	if !present {
		return nil, notFound(reviews.KindDiffComment, id)
	}
	return copyDiffComment(c), nil
}

// DiffComments returns the diff comments matching a query in ID
// order.
func (s *Store) DiffComments(q reviews.CommentQuery) ([]*reviews.DiffComment, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.DiffComment
	for _, c := range s.diffComments {
		if q.ReviewID != 0 && c.ReviewID != q.ReviewID {
			continue
		}
		if q.FileDiffID != 0 && c.FileDiffID != q.FileDiffID {
			continue
		}
		if q.ReplyToID != 0 && c.ReplyToID != q.ReplyToID {
			continue
		}
		if q.Line != 0 && c.FirstLine != q.Line {
			continue
		}
		result = append(result, copyDiffComment(c))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateDiffComment stores a new diff comment.
func (s *Store) CreateDiffComment(c *reviews.DiffComment) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviews[c.ReviewID]; !present {
		return notFound(reviews.KindReview, c.ReviewID)
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = s.clock.Now()
	}
	c.ID = s.nextID(reviews.KindDiffComment)
	s.diffComments[c.ID] = copyDiffComment(c)
	return nil
}

// SaveDiffComment overwrites an existing diff comment.
func (s *Store) SaveDiffComment(c *reviews.DiffComment) error {
	s.lock()
	defer s.unlock()
	if _, present := s.diffComments[c.ID]; !present {
		return notFound(reviews.KindDiffComment, c.ID)
	}
	s.diffComments[c.ID] = copyDiffComment(c)
	return nil
}

// DeleteDiffComment removes a diff comment.
func (s *Store) DeleteDiffComment(id int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.diffComments[id]; !present {
		return notFound(reviews.KindDiffComment, id)
	}
	delete(s.diffComments, id)
	return nil
}

// ScreenshotComment fetches a screenshot comment by ID.
func (s *Store) ScreenshotComment(id int) (*reviews.ScreenshotComment, error) {
	s.lock()
	defer s.unlock()
	c, present := s.screenshotComments[id]
	if !present {
		return nil, notFound(reviews.KindScreenshotComment, id)
	}
	return copyScreenshotComment(c), nil
}

// ScreenshotComments returns the screenshot comments matching a query
// in ID order.
func (s *Store) ScreenshotComments(q reviews.CommentQuery) ([]*reviews.ScreenshotComment, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.ScreenshotComment
	for _, c := range s.screenshotComments {
		if q.ReviewID != 0 && c.ReviewID != q.ReviewID {
			continue
		}
		if q.ScreenshotID != 0 && c.ScreenshotID != q.ScreenshotID {
			continue
		}
		if q.ReplyToID != 0 && c.ReplyToID != q.ReplyToID {
			continue
		}
		result = append(result, copyScreenshotComment(c))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateScreenshotComment stores a new screenshot comment.
func (s *Store) CreateScreenshotComment(c *reviews.ScreenshotComment) error {
	s.lock()
	defer s.unlock()
	if _, present := s.reviews[c.ReviewID]; !present {
		return notFound(reviews.KindReview, c.ReviewID)
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = s.clock.Now()
	}
	c.ID = s.nextID(reviews.KindScreenshotComment)
	s.screenshotComments[c.ID] = copyScreenshotComment(c)
	return nil
}

// SaveScreenshotComment overwrites an existing screenshot comment.
func (s *Store) SaveScreenshotComment(c *reviews.ScreenshotComment) error {
	s.lock()
	defer s.unlock()
	if _, present := s.screenshotComments[c.ID]; !present {
		return notFound(reviews.KindScreenshotComment, c.ID)
	}
	s.screenshotComments[c.ID] = copyScreenshotComment(c)
	return nil
}

// DeleteScreenshotComment removes a screenshot comment.
func (s *Store) DeleteScreenshotComment(id int) error {
	s.lock()
	defer s.unlock()
	if _, present := s.screenshotComments[id]; !present {
		return notFound(reviews.KindScreenshotComment, id)
	}
	delete(s.screenshotComments, id)
	return nil
}
