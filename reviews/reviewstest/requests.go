// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviewstest

import (
	"time"

	"github.com/diffeo/go-reviewapi/reviews"
)

// TestReviewRequestLifetime checks creation, update, and deletion of
// a review request.
func (s *Suite) TestReviewRequestLifetime() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)
	s.NotZero(rr.ID)
	s.True(s.Clock.Now().Equal(rr.TimeAdded))
	s.True(rr.TimeAdded.Equal(rr.LastUpdated))

	rr.Summary = "new summary"
	rr.BugsClosed = []string{"1", "2"}
	rr.TargetPeople = []string{alice.Username}
	if s.NoError(s.Store.SaveReviewRequest(rr)) {
		got, err := s.Store.ReviewRequest(rr.ID)
		if s.NoError(err) {
			s.Equal("new summary", got.Summary)
			s.Equal([]string{"1", "2"}, got.BugsClosed)
			s.Equal([]string{alice.Username}, got.TargetPeople)
			s.Equal(reviews.StatusPending, got.Status)
		}
	}

	if s.NoError(s.Store.DeleteReviewRequest(rr.ID)) {
		_, err := s.Store.ReviewRequest(rr.ID)
		s.assertNotFound(err)
	}
	s.assertNotFound(s.Store.DeleteReviewRequest(rr.ID))
}

// TestStoreCopies checks that changing a fetched object does not
// change the store until it is saved.
func (s *Suite) TestStoreCopies() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)

	rr.Summary = "unsaved"
	got, err := s.Store.ReviewRequest(rr.ID)
	if s.NoError(err) {
		s.Equal("summary", got.Summary)
	}
}

// TestChangeNumberInUse checks that a change number is unique within
// a repository.
func (s *Suite) TestChangeNumberInUse() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	first := &reviews.ReviewRequest{
		Submitter:    alice.Username,
		RepositoryID: repo.ID,
		ChangeNum:    17,
		Status:       reviews.StatusPending,
	}
	if !s.NoError(s.Store.CreateReviewRequest(first)) {
		return
	}
	second := &reviews.ReviewRequest{
		Submitter:    alice.Username,
		RepositoryID: repo.ID,
		ChangeNum:    17,
		Status:       reviews.StatusPending,
	}
	err := s.Store.CreateReviewRequest(second)
	s.Equal(reviews.ErrChangeNumberInUse{ReviewRequestID: first.ID}, err)

	// Zero is not a change number
	for i := 0; i < 2; i++ {
		s.NoError(s.Store.CreateReviewRequest(&reviews.ReviewRequest{
			Submitter:    alice.Username,
			RepositoryID: repo.ID,
			Status:       reviews.StatusPending,
		}))
	}
}

// TestReviewRequestQueries checks filtering, ordering, and paging.
func (s *Suite) TestReviewRequestQueries() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	bob := s.makeUser("bob")

	var ids []int
	for i := 0; i < 4; i++ {
		rr := s.makeRequest(repo, alice)
		ids = append(ids, rr.ID)
		s.Clock.Add(time.Minute)
	}
	// Touch the oldest so it becomes the newest
	oldest, err := s.Store.ReviewRequest(ids[0])
	if !s.NoError(err) {
		return
	}
	oldest.LastUpdated = s.Clock.Now()
	s.NoError(s.Store.SaveReviewRequest(oldest))

	submitted, err := s.Store.ReviewRequest(ids[1])
	if !s.NoError(err) {
		return
	}
	submitted.Status = reviews.StatusSubmitted
	s.NoError(s.Store.SaveReviewRequest(submitted))

	private := &reviews.ReviewRequest{
		Submitter:    bob.Username,
		RepositoryID: repo.ID,
		Status:       reviews.StatusPending,
	}
	s.NoError(s.Store.CreateReviewRequest(private))

	q := &reviews.ReviewRequestQuery{RepositoryID: repo.ID}
	result, err := s.Store.ReviewRequests(q)
	if s.NoError(err) && s.Len(result, 3) {
		s.Equal(ids[0], result[0].ID)
		s.Equal(ids[3], result[1].ID)
		s.Equal(ids[2], result[2].ID)
	}
	count, err := s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(3, count)
	}

	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, Viewer: bob.Username}
	count, err = s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(4, count)
	}

	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, Status: reviews.StatusAll}
	count, err = s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(4, count)
	}

	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, Status: reviews.StatusSubmitted}
	result, err = s.Store.ReviewRequests(q)
	if s.NoError(err) && s.Len(result, 1) {
		s.Equal(ids[1], result[0].ID)
	}

	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, Start: 1, Limit: 1}
	result, err = s.Store.ReviewRequests(q)
	if s.NoError(err) && s.Len(result, 1) {
		s.Equal(ids[3], result[0].ID)
	}
	count, err = s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(3, count)
	}

	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, FromUser: bob.Username}
	count, err = s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(0, count)
	}
}

// TestReviewRequestTargets checks the reviewer filters.
func (s *Suite) TestReviewRequestTargets() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	bob := s.makeUser("bob")
	carol := s.makeUser("carol")
	group := &reviews.Group{
		Name:    s.name("devs"),
		Visible: true,
		Members: []string{carol.Username},
	}
	if !s.NoError(s.Store.CreateGroup(group)) {
		return
	}

	toBob := s.makeRequest(repo, alice)
	toBob.TargetPeople = []string{bob.Username}
	s.NoError(s.Store.SaveReviewRequest(toBob))

	toGroup := s.makeRequest(repo, alice)
	toGroup.TargetGroups = []string{group.Name}
	s.NoError(s.Store.SaveReviewRequest(toGroup))

	check := func(q *reviews.ReviewRequestQuery, expected ...int) {
		q.RepositoryID = repo.ID
		result, err := s.Store.ReviewRequests(q)
		if s.NoError(err) {
			var ids []int
			for _, rr := range result {
				ids = append(ids, rr.ID)
			}
			s.ElementsMatch(expected, ids)
		}
	}
	check(&reviews.ReviewRequestQuery{ToUsersDirectly: []string{bob.Username}}, toBob.ID)
	check(&reviews.ReviewRequestQuery{ToUsersDirectly: []string{carol.Username}})
	check(&reviews.ReviewRequestQuery{ToGroups: []string{group.Name}}, toGroup.ID)
	check(&reviews.ReviewRequestQuery{ToUserGroups: []string{carol.Username}}, toGroup.ID)
	check(&reviews.ReviewRequestQuery{ToUsers: []string{carol.Username}}, toGroup.ID)
	check(&reviews.ReviewRequestQuery{ToUsers: []string{bob.Username}}, toBob.ID)
	check(&reviews.ReviewRequestQuery{ToUsers: []string{bob.Username, carol.Username}})
}

// TestReviewRequestDates checks the time range filters.
func (s *Suite) TestReviewRequestDates() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	start := s.Clock.Now()
	first := s.makeRequest(repo, alice)
	s.Clock.Add(time.Hour)
	middle := s.Clock.Now()
	second := s.makeRequest(repo, alice)
	s.Clock.Add(time.Hour)

	q := &reviews.ReviewRequestQuery{RepositoryID: repo.ID, TimeAddedFrom: middle}
	result, err := s.Store.ReviewRequests(q)
	if s.NoError(err) && s.Len(result, 1) {
		s.Equal(second.ID, result[0].ID)
	}
	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, TimeAddedTo: middle}
	result, err = s.Store.ReviewRequests(q)
	if s.NoError(err) && s.Len(result, 1) {
		s.Equal(first.ID, result[0].ID)
	}
	q = &reviews.ReviewRequestQuery{RepositoryID: repo.ID, LastUpdatedFrom: start, LastUpdatedTo: s.Clock.Now()}
	count, err := s.Store.CountReviewRequests(q)
	if s.NoError(err) {
		s.Equal(2, count)
	}
}

// TestDraftLifetime checks that a review request has at most one
// draft.
func (s *Suite) TestDraftLifetime() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)

	_, err := s.Store.Draft(rr.ID)
	s.assertNotFound(err)

	draft, created, err := s.Store.CreateDraft(&reviews.Draft{
		ReviewRequestID: rr.ID,
		Summary:         "draft summary",
	})
	if !s.NoError(err) {
		return
	}
	s.True(created)
	s.NotZero(draft.ID)
	s.True(s.Clock.Now().Equal(draft.LastUpdated))

	again, created, err := s.Store.CreateDraft(&reviews.Draft{
		ReviewRequestID: rr.ID,
		Summary:         "other",
	})
	if s.NoError(err) {
		s.False(created)
		s.Equal(draft.ID, again.ID)
		s.Equal("draft summary", again.Summary)
	}

	draft.ScreenshotIDs = []int{3, 4}
	draft.TargetGroups = []string{"g"}
	if s.NoError(s.Store.SaveDraft(draft)) {
		got, err := s.Store.Draft(rr.ID)
		if s.NoError(err) {
			s.Equal([]int{3, 4}, got.ScreenshotIDs)
			s.Equal([]string{"g"}, got.TargetGroups)
		}
	}

	s.NoError(s.Store.DeleteDraft(rr.ID))
	_, err = s.Store.Draft(rr.ID)
	s.assertNotFound(err)
	s.assertNotFound(s.Store.DeleteDraft(rr.ID))

	_, _, err = s.Store.CreateDraft(&reviews.Draft{ReviewRequestID: rr.ID + 100000})
	s.assertNotFound(err)
}

// TestDeleteCascades checks that deleting a review request removes
// its draft and reviews.
func (s *Suite) TestDeleteCascades() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)
	_, _, err := s.Store.CreateDraft(&reviews.Draft{ReviewRequestID: rr.ID})
	s.NoError(err)
	review, _, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            alice.Username,
	})
	if !s.NoError(err) {
		return
	}

	s.NoError(s.Store.DeleteReviewRequest(rr.ID))
	_, err = s.Store.Draft(rr.ID)
	s.assertNotFound(err)
	_, err = s.Store.Review(review.ID)
	s.assertNotFound(err)
}
