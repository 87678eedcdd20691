// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import "github.com/diffeo/go-reviewapi/reviews"

// ReviewChanges lists the review fields to change.  Nil fields are
// left alone.  ShipIt is ignored for replies.
type ReviewChanges struct {
	ShipIt     *bool   `mapstructure:"ship_it"`
	BodyTop    *string `mapstructure:"body_top"`
	BodyBottom *string `mapstructure:"body_bottom"`

	// Public publishes the review once the changes are applied.
	Public bool `mapstructure:"public"`
}

// Reviews lists the public top-level reviews of rr.
func (s *Service) Reviews(rr *reviews.ReviewRequest) ([]*reviews.Review, error) {
	return s.Store.Reviews(reviews.ReviewQuery{
		ReviewRequestID: rr.ID,
		PublicOnly:      true,
	})
}

// Replies lists the public replies to a review.
func (s *Service) Replies(base *reviews.Review) ([]*reviews.Review, error) {
	return s.Store.Reviews(reviews.ReviewQuery{
		ReviewRequestID: base.ReviewRequestID,
		BaseReplyToID:   base.ID,
		PublicOnly:      true,
	})
}

// Review fetches a review or reply of rr that p may read.  If base is
// nil the result must be a top-level review; otherwise it must be a
// reply to base.  A review belonging elsewhere is not found.
func (s *Service) Review(p *reviews.User, rr *reviews.ReviewRequest, base *reviews.Review, id int) (*reviews.Review, error) {
	r, err := s.Store.Review(id)
	if err != nil {
		return nil, err
	}
	baseID, kind := 0, reviews.KindReview
	if base != nil {
		baseID, kind = base.ID, reviews.KindReply
	}
	if r.ReviewRequestID != rr.ID || r.BaseReplyToID != baseID {
		return nil, reviews.ErrNotFound{Kind: kind, Key: id}
	}
	if !CanReadReview(p, r) {
		return nil, denied(p)
	}
	return r, nil
}

// PendingReview returns p's unpublished review of rr, or unpublished
// reply to base if base is non-nil.  It returns ErrNotFound if there
// is none.
func (s *Service) PendingReview(p *reviews.User, rr *reviews.ReviewRequest, base *reviews.Review) (*reviews.Review, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	q := reviews.ReviewQuery{ReviewRequestID: rr.ID, User: p.Username}
	kind := reviews.KindReview
	if base != nil {
		q.BaseReplyToID = base.ID
		kind = reviews.KindReply
	}
	all, err := s.Store.Reviews(q)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if !r.Public {
			return r, nil
		}
	}
	return nil, reviews.ErrNotFound{Kind: kind, Key: "draft"}
}

// GetOrCreateReview finds p's unpublished review of rr, or reply to
// base if base is non-nil, creating it if there is none, and then
// applies ch as UpdateReview does.  The boolean result is true if the
// review was newly created.
func (s *Service) GetOrCreateReview(p *reviews.User, rr *reviews.ReviewRequest, base *reviews.Review, ch ReviewChanges) (*reviews.Review, bool, error) {
	if err := requireLogin(p); err != nil {
		return nil, false, err
	}
	r := &reviews.Review{
		ReviewRequestID: rr.ID,
		User:            p.Username,
		Timestamp:       s.now(),
	}
	if base != nil {
		if base.ReviewRequestID != rr.ID || base.IsReply() {
			return nil, false, reviews.ErrNotFound{Kind: reviews.KindReview, Key: base.ID}
		}
		r.BaseReplyToID = base.ID
	}
	r, created, err := s.Store.GetOrCreateReview(r)
	if err != nil {
		return nil, false, err
	}
	r, err = s.UpdateReview(p, r, ch)
	return r, created, err
}

// UpdateReview changes an unpublished review or reply owned by p,
// and publishes it if ch.Public is set.  Once public, a review can no
// longer be changed.
//
// For a reply, setting a body to non-empty text marks it as
// continuing the same section of the base review, and setting it
// empty clears that mark.
func (s *Service) UpdateReview(p *reviews.User, r *reviews.Review, ch ReviewChanges) (*reviews.Review, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReview(p, r) {
		return nil, reviews.ErrPermissionDenied
	}

	updated := *r
	if ch.ShipIt != nil && !r.IsReply() {
		updated.ShipIt = *ch.ShipIt
	}
	if ch.BodyTop != nil {
		updated.BodyTop = *ch.BodyTop
		if updated.IsReply() {
			updated.BodyTopReplyToID = replyTo(&updated, *ch.BodyTop)
		}
	}
	if ch.BodyBottom != nil {
		updated.BodyBottom = *ch.BodyBottom
		if updated.IsReply() {
			updated.BodyBottomReplyToID = replyTo(&updated, *ch.BodyBottom)
		}
	}
	if ch.Public {
		updated.Public = true
		updated.Timestamp = s.now()
	}
	if err := s.Store.SaveReview(&updated); err != nil {
		return nil, err
	}
	if ch.Public {
		s.notifyReview(&updated)
	}
	return &updated, nil
}

func replyTo(reply *reviews.Review, body string) int {
	if body == "" {
		return 0
	}
	return reply.BaseReplyToID
}

// notifyReview tells the review request's submitter and reviewers
// about a newly published review or reply.
func (s *Service) notifyReview(r *reviews.Review) {
	event := reviews.Event{
		Type:            reviews.EventReviewPublished,
		Actor:           r.User,
		ReviewRequestID: r.ReviewRequestID,
		ReviewID:        r.ID,
		Timestamp:       r.Timestamp,
	}
	if r.IsReply() {
		event.Type = reviews.EventReplyPublished
	}
	if rr, err := s.Store.ReviewRequest(r.ReviewRequestID); err == nil {
		event.Targets = targets(rr.TargetGroups, append([]string{rr.Submitter}, rr.TargetPeople...))
	}
	s.notify(event)
}

// DeleteReview permanently deletes an unpublished review or reply and
// its comments.
func (s *Service) DeleteReview(p *reviews.User, r *reviews.Review) error {
	if err := requireLogin(p); err != nil {
		return err
	}
	if !CanModifyReview(p, r) {
		return reviews.ErrPermissionDenied
	}
	return s.Store.DeleteReview(r.ID)
}
