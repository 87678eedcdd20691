// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sirupsen/logrus"
)

// NewReviewRequest holds the parameters to create a review request.
type NewReviewRequest struct {
	// Repository is a numeric repository ID, or a repository
	// path or mirror path.
	Repository string `mapstructure:"repository"`
	// SubmitAs names another user to own the review request.
	SubmitAs string `mapstructure:"submit_as"`
	// ChangeNum is a change number known to the repository tool,
	// or 0.
	ChangeNum int `mapstructure:"changenum"`
}

// ReviewRequest fetches a review request that p may read.
func (s *Service) ReviewRequest(p *reviews.User, id int) (*reviews.ReviewRequest, error) {
	rr, err := s.Store.ReviewRequest(id)
	if err != nil {
		return nil, err
	}
	ok, err := s.CanReadReviewRequest(p, rr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, denied(p)
	}
	return rr, nil
}

// ReviewRequests returns one page of the review requests visible to p
// that match q.
func (s *Service) ReviewRequests(p *reviews.User, q *reviews.ReviewRequestQuery) ([]*reviews.ReviewRequest, error) {
	qq := *q
	qq.Viewer = username(p)
	return s.Store.ReviewRequests(&qq)
}

// CountReviewRequests returns the number of review requests visible
// to p that match q.
func (s *Service) CountReviewRequests(p *reviews.User, q *reviews.ReviewRequestQuery) (int, error) {
	qq := *q
	qq.Viewer = username(p)
	return s.Store.CountReviewRequests(&qq)
}

// resolveUser finds a user in the store, or failing that through the
// user resolver.  It returns nil if neither knows the user.
func (s *Service) resolveUser(name string) (*reviews.User, error) {
	u, err := s.Store.User(name)
	if err == nil {
		return u, nil
	}
	if !reviews.IsNotFound(err) {
		return nil, err
	}
	if s.Users == nil {
		return nil, nil
	}
	return s.Users.ResolveOrCreateUser(name)
}

// resolveRepository finds a repository by numeric ID, path, or
// mirror path.
func (s *Service) resolveRepository(name string) (*reviews.Repository, error) {
	var (
		repo *reviews.Repository
		err  error
	)
	if id, convErr := strconv.Atoi(name); convErr == nil {
		repo, err = s.Store.Repository(id)
	} else {
		repo, err = s.Store.RepositoryByPath(name)
	}
	if reviews.IsNotFound(err) || (err == nil && name == "") {
		return nil, reviews.ErrInvalidRepository{Repository: name}
	}
	return repo, err
}

// changeset asks the repository tool about a change number.
func (s *Service) changeset(ctx context.Context, repo *reviews.Repository, changenum int) (*reviews.Changeset, error) {
	if s.SCM == nil {
		return nil, reviews.ErrNotImplemented
	}
	cs, err := s.SCM.Changeset(ctx, repo, changenum)
	switch {
	case err == nil:
	case errors.Is(err, reviews.ErrInvalidChangeNumber), errors.Is(err, reviews.ErrNotImplemented):
		return nil, err
	default:
		return nil, reviews.ErrUpstream{Err: err}
	}
	if len(cs.Files) == 0 {
		return nil, reviews.ErrEmptyChangeset
	}
	return cs, nil
}

// CreateReviewRequest creates a new, private, pending review request
// and its initial draft.  If nr.ChangeNum is set, the summary and
// other details are filled in from the repository tool.
func (s *Service) CreateReviewRequest(ctx context.Context, p *reviews.User, nr NewReviewRequest) (*reviews.ReviewRequest, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}

	submitter := p
	if nr.SubmitAs != "" && nr.SubmitAs != p.Username {
		if !p.HasPerm(reviews.PermCanSubmitAsAnotherUser) {
			return nil, reviews.ErrPermissionDenied
		}
		u, err := s.resolveUser(nr.SubmitAs)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, reviews.ErrInvalidUser{Username: nr.SubmitAs}
		}
		submitter = u
	}

	repo, err := s.resolveRepository(nr.Repository)
	if err != nil {
		return nil, err
	}
	if !CanReadRepository(p, repo) {
		return nil, reviews.ErrPermissionDenied
	}

	now := s.now()
	rr := &reviews.ReviewRequest{
		Submitter:    submitter.Username,
		RepositoryID: repo.ID,
		ChangeNum:    nr.ChangeNum,
		Status:       reviews.StatusPending,
		TimeAdded:    now,
		LastUpdated:  now,
	}
	if nr.ChangeNum != 0 {
		cs, err := s.changeset(ctx, repo, nr.ChangeNum)
		if err != nil {
			return nil, err
		}
		rr.Summary = cs.Summary
		rr.Description = cs.Description
		rr.TestingDone = cs.TestingDone
		rr.Branch = cs.Branch
		rr.BugsClosed = cs.BugsClosed
	}
	if err := s.Store.CreateReviewRequest(rr); err != nil {
		return nil, err
	}
	if _, err := s.createDraft(rr); err != nil {
		return nil, err
	}
	return rr, nil
}

// SetStatus closes or reopens a review request.  Setting the status
// it already has does nothing.  Reopening a discarded review request
// makes it private again, with a fresh draft, so its owner can
// republish it.
func (s *Service) SetStatus(p *reviews.User, rr *reviews.ReviewRequest, status reviews.Status) (*reviews.ReviewRequest, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	switch status {
	case reviews.StatusPending, reviews.StatusSubmitted, reviews.StatusDiscarded:
	default:
		return nil, reviews.InvalidField("status", "This is not a valid status")
	}
	if rr.Status == status {
		return rr, nil
	}
	if !CanChangeStatus(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}

	updated := *rr
	event := reviews.EventReviewRequestClosed
	wasDiscarded := rr.Status == reviews.StatusDiscarded
	if status == reviews.StatusPending {
		event = reviews.EventReviewRequestReopened
		if wasDiscarded {
			updated.Public = false
		}
	}
	updated.Status = status
	updated.LastUpdated = s.now()
	if err := s.Store.SaveReviewRequest(&updated); err != nil {
		return nil, err
	}
	if status == reviews.StatusPending && wasDiscarded {
		if _, err := s.createDraft(&updated); err != nil {
			return nil, err
		}
	}
	s.notify(reviews.Event{
		Type:            event,
		Actor:           p.Username,
		ReviewRequestID: updated.ID,
		Targets:         targets(updated.TargetGroups, updated.TargetPeople),
		Timestamp:       updated.LastUpdated,
	})
	return &updated, nil
}

// DeleteReviewRequest permanently deletes a review request with its
// drafts, diffs, screenshots, reviews, and comments.  Screenshot
// images are removed from file storage on a best-effort basis.
func (s *Service) DeleteReviewRequest(ctx context.Context, p *reviews.User, rr *reviews.ReviewRequest) error {
	if err := requireLogin(p); err != nil {
		return err
	}
	if !CanDeleteReviewRequest(p) {
		return reviews.ErrPermissionDenied
	}
	screenshots, err := s.Store.Screenshots(rr.ID)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteReviewRequest(rr.ID); err != nil {
		return err
	}
	if s.Files == nil {
		return nil
	}
	for _, ss := range screenshots {
		if err := s.Files.Delete(ctx, ss.Path); err != nil {
			s.logger().WithFields(logrus.Fields{
				"review_request": rr.ID,
				"path":           ss.Path,
				"err":            err,
			}).Warn("could not remove screenshot image")
		}
	}
	return nil
}

// LastUpdate describes the most recent public activity on a review
// request: an update of the request itself, a new diff, or a new
// review or reply.  Drafts are not considered, so the caller need
// only be able to read rr.
func (s *Service) LastUpdate(rr *reviews.ReviewRequest) (*reviews.LastUpdate, error) {
	lu := &reviews.LastUpdate{
		Timestamp: rr.LastUpdated,
		User:      rr.Submitter,
		Summary:   "Review request updated",
		Type:      reviews.UpdateReviewRequest,
	}
	diffsets, err := s.Store.DiffSets(rr.ID)
	if err != nil {
		return nil, err
	}
	for _, ds := range diffsets {
		if ds.Timestamp.After(lu.Timestamp) {
			lu = &reviews.LastUpdate{
				Timestamp: ds.Timestamp,
				Summary:   "Diff updated",
				Type:      reviews.UpdateDiff,
			}
		}
	}
	all, err := s.Store.Reviews(reviews.ReviewQuery{
		ReviewRequestID: rr.ID,
		AnyBase:         true,
		PublicOnly:      true,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if !r.Timestamp.After(lu.Timestamp) {
			continue
		}
		lu = &reviews.LastUpdate{
			Timestamp: r.Timestamp,
			User:      r.User,
			Summary:   "New review",
			Type:      reviews.UpdateReview,
		}
		if r.IsReply() {
			lu.Summary = "New reply"
			lu.Type = reviews.UpdateReply
		}
	}
	return lu, nil
}

// targets lists the notification targets of a review request.
func targets(groups, people []string) []string {
	result := make([]string, 0, len(groups)+len(people))
	result = append(result, groups...)
	return append(result, people...)
}
