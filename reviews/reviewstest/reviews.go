// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviewstest

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

// TestGetOrCreateReview checks that each user has at most one pending
// review per review request, and one pending reply per review.
func (s *Suite) TestGetOrCreateReview() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	bob := s.makeUser("bob")
	rr := s.makeRequest(repo, alice)

	review, created, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            bob.Username,
	})
	if !s.NoError(err) {
		return
	}
	s.True(created)
	s.NotZero(review.ID)

	again, created, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            bob.Username,
	})
	if s.NoError(err) {
		s.False(created)
		s.Equal(review.ID, again.ID)
	}

	reply, created, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            bob.Username,
		BaseReplyToID:   review.ID,
	})
	if s.NoError(err) {
		s.True(created)
		s.NotEqual(review.ID, reply.ID)
		s.True(reply.IsReply())
	}

	review.Public = true
	review.ShipIt = true
	s.NoError(s.Store.SaveReview(review))
	next, created, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            bob.Username,
	})
	if s.NoError(err) {
		s.True(created)
		s.NotEqual(review.ID, next.ID)
	}

	list, err := s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, PublicOnly: true})
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal(review.ID, list[0].ID)
		s.True(list[0].ShipIt)
	}
	list, err = s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID})
	if s.NoError(err) {
		s.Len(list, 2)
	}
	list, err = s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, AnyBase: true})
	if s.NoError(err) {
		s.Len(list, 3)
	}
	list, err = s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, BaseReplyToID: review.ID})
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal(reply.ID, list[0].ID)
	}
	list, err = s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, User: alice.Username})
	if s.NoError(err) {
		s.Empty(list)
	}
}

// TestComments checks diff and screenshot comment storage, and that
// deleting a review removes its comments and replies.
func (s *Suite) TestComments() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)
	ds := &reviews.DiffSet{ReviewRequestID: rr.ID, Name: "diff", Revision: 1}
	fd := &reviews.FileDiff{SourceFile: "a.go", DestFile: "a.go"}
	if !s.NoError(s.Store.CreateDiffSet(ds, []*reviews.FileDiff{fd})) {
		return
	}
	ss := &reviews.Screenshot{ReviewRequestID: rr.ID, Path: "a.png"}
	if !s.NoError(s.Store.CreateScreenshot(ss)) {
		return
	}
	review, _, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            alice.Username,
	})
	if !s.NoError(err) {
		return
	}

	dc := &reviews.DiffComment{
		ReviewID:   review.ID,
		FileDiffID: fd.ID,
		FirstLine:  10,
		NumLines:   2,
		Text:       "fix this",
	}
	if !s.NoError(s.Store.CreateDiffComment(dc)) {
		return
	}
	s.NotZero(dc.ID)
	s.True(s.Clock.Now().Equal(dc.Timestamp))

	sc := &reviews.ScreenshotComment{
		ReviewID:     review.ID,
		ScreenshotID: ss.ID,
		X:            1,
		Y:            2,
		W:            3,
		H:            4,
		Text:         "blurry",
	}
	if !s.NoError(s.Store.CreateScreenshotComment(sc)) {
		return
	}

	dc.Text = "fix this please"
	s.NoError(s.Store.SaveDiffComment(dc))
	got, err := s.Store.DiffComment(dc.ID)
	if s.NoError(err) {
		s.Equal("fix this please", got.Text)
		s.Equal(10, got.FirstLine)
	}

	dcs, err := s.Store.DiffComments(reviews.CommentQuery{FileDiffID: fd.ID})
	if s.NoError(err) {
		s.Len(dcs, 1)
	}
	dcs, err = s.Store.DiffComments(reviews.CommentQuery{FileDiffID: fd.ID, Line: 11})
	if s.NoError(err) {
		s.Empty(dcs)
	}
	scs, err := s.Store.ScreenshotComments(reviews.CommentQuery{ReviewID: review.ID})
	if s.NoError(err) && s.Len(scs, 1) {
		s.Equal(3, scs[0].W)
	}

	reply, _, err := s.Store.GetOrCreateReview(&reviews.Review{
		ReviewRequestID: rr.ID,
		User:            alice.Username,
		BaseReplyToID:   review.ID,
	})
	if !s.NoError(err) {
		return
	}
	replyComment := &reviews.DiffComment{
		ReviewID:   reply.ID,
		FileDiffID: fd.ID,
		FirstLine:  10,
		NumLines:   2,
		Text:       "done",
		ReplyToID:  dc.ID,
	}
	s.NoError(s.Store.CreateDiffComment(replyComment))
	dcs, err = s.Store.DiffComments(reviews.CommentQuery{ReplyToID: dc.ID})
	if s.NoError(err) && s.Len(dcs, 1) {
		s.Equal(reviews.KindReplyDiffComment, dcs[0].Kind())
	}

	s.NoError(s.Store.DeleteScreenshotComment(sc.ID))
	_, err = s.Store.ScreenshotComment(sc.ID)
	s.assertNotFound(err)

	s.NoError(s.Store.DeleteReview(review.ID))
	_, err = s.Store.DiffComment(dc.ID)
	s.assertNotFound(err)
	_, err = s.Store.Review(reply.ID)
	s.assertNotFound(err)
	_, err = s.Store.DiffComment(replyComment.ID)
	s.assertNotFound(err)

	s.assertNotFound(s.Store.CreateDiffComment(&reviews.DiffComment{ReviewID: review.ID}))
}

// TestWatches checks watch list storage.
func (s *Suite) TestWatches() {
	alice := s.makeUser("alice")
	entry := reviews.WatchEntry{
		ID:       "entry-1",
		Username: alice.Username,
		Kind:     reviews.WatchReviewRequest,
		ObjectID: 7,
	}
	s.NoError(s.Store.AddWatch(entry))
	s.NoError(s.Store.AddWatch(entry))
	s.NoError(s.Store.AddWatch(reviews.WatchEntry{
		ID:       "entry-2",
		Username: alice.Username,
		Kind:     reviews.WatchReviewRequest,
		ObjectID: 3,
	}))

	entries, err := s.Store.Watches(alice.Username, reviews.WatchReviewRequest)
	if s.NoError(err) && s.Len(entries, 2) {
		s.Equal(3, entries[0].ObjectID)
		s.Equal(entry, entries[1])
	}
	entries, err = s.Store.Watches(alice.Username, reviews.WatchGroup)
	if s.NoError(err) {
		s.Empty(entries)
	}

	s.NoError(s.Store.RemoveWatch(alice.Username, reviews.WatchReviewRequest, 7))
	s.NoError(s.Store.RemoveWatch(alice.Username, reviews.WatchReviewRequest, 7))
	entries, err = s.Store.Watches(alice.Username, reviews.WatchReviewRequest)
	if s.NoError(err) {
		s.Len(entries, 1)
	}
}
