// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

func (s *Suite) TestStarReviewRequest() {
	rr := s.publishedRequest("Star me")
	key := strconv.Itoa(rr.ID)

	w, err := s.Service.Star(s.Reviewer, "reviewer", reviews.WatchReviewRequest, key)
	s.Require().NoError(err)
	s.Equal(rr.ID, w.Entry.ObjectID)
	s.NotEqual(key, w.Entry.ID)
	s.Equal(workflow.WatchEntryID("reviewer", reviews.WatchReviewRequest, rr.ID), w.Entry.ID)

	// Starring twice is harmless
	again, err := s.Service.Star(s.Reviewer, "reviewer", reviews.WatchReviewRequest, key)
	s.Require().NoError(err)
	s.Equal(w.Entry.ID, again.Entry.ID)

	list, err := s.Service.Watched(s.Reviewer, "reviewer", reviews.WatchReviewRequest)
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal(rr.ID, list[0].Object.(*reviews.ReviewRequest).ID)
	}

	got, err := s.Service.WatchedEntry(s.Reviewer, "reviewer", reviews.WatchReviewRequest, w.Entry.ID)
	if s.NoError(err) {
		s.Equal(rr.ID, got.Entry.ObjectID)
	}
	_, err = s.Service.WatchedEntry(s.Reviewer, "reviewer", reviews.WatchReviewRequest, key)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindWatchedReviewRequest, Key: key}, err)

	s.NoError(s.Service.Unstar(s.Reviewer, "reviewer", reviews.WatchReviewRequest, w.Entry.ID))
	s.NoError(s.Service.Unstar(s.Reviewer, "reviewer", reviews.WatchReviewRequest, w.Entry.ID))
	list, err = s.Service.Watched(s.Reviewer, "reviewer", reviews.WatchReviewRequest)
	if s.NoError(err) {
		s.Empty(list)
	}
}

func (s *Suite) TestStarPermissions() {
	rr := s.publishedRequest("Star me")
	key := strconv.Itoa(rr.ID)

	_, err := s.Service.Star(s.Owner, "reviewer", reviews.WatchReviewRequest, key)
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.Star(nil, "reviewer", reviews.WatchReviewRequest, key)
	s.Equal(reviews.ErrNotLoggedIn, err)
	_, err = s.Service.Star(s.Admin, "reviewer", reviews.WatchReviewRequest, key)
	s.NoError(err)
	_, err = s.Service.Star(s.Admin, "nobody", reviews.WatchReviewRequest, key)
	s.True(reviews.IsNotFound(err))
	_, err = s.Service.Star(s.Reviewer, "reviewer", reviews.WatchReviewRequest, "9999")
	s.True(reviews.IsNotFound(err))

	// A private review request is not starrable by others
	private := s.newRequest()
	_, err = s.Service.Star(s.Reviewer, "reviewer", reviews.WatchReviewRequest, strconv.Itoa(private.ID))
	s.Equal(reviews.ErrPermissionDenied, err)
}

func (s *Suite) TestStarGroup() {
	w, err := s.Service.Star(s.Owner, "owner", reviews.WatchGroup, "qa")
	s.Require().NoError(err)
	s.Equal(s.Group.ID, w.Entry.ObjectID)

	byID, err := s.Service.Star(s.Owner, "owner", reviews.WatchGroup, strconv.Itoa(s.Group.ID))
	s.Require().NoError(err)
	s.Equal(w.Entry.ID, byID.Entry.ID)

	list, err := s.Service.Watched(nil, "owner", reviews.WatchGroup)
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal("qa", list[0].Object.(*reviews.Group).Name)
	}

	_, err = s.Service.WatchedEntry(s.Owner, "owner", reviews.WatchGroup, "missing")
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindWatchedGroup, Key: "missing"}, err)

	secret := &reviews.Group{Name: "secret", InviteOnly: true}
	s.Require().NoError(s.Store.CreateGroup(secret))
	_, err = s.Service.Star(s.Owner, "owner", reviews.WatchGroup, "secret")
	s.Equal(reviews.ErrPermissionDenied, err)
}

func (s *Suite) TestWatchedGroupByID() {
	_, err := s.Service.Star(s.Owner, "owner", reviews.WatchGroup, "qa")
	s.Require().NoError(err)

	// A group whose name is another group's ID does not hide it
	numeric := &reviews.Group{Name: strconv.Itoa(s.Group.ID), Visible: true}
	s.Require().NoError(s.Store.CreateGroup(numeric))

	list, err := s.Service.Watched(s.Owner, "owner", reviews.WatchGroup)
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal("qa", list[0].Object.(*reviews.Group).Name)
	}
}
