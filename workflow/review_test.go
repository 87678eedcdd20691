// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"context"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

func (s *Suite) TestGetOrCreateReview() {
	rr := s.publishedRequest("Review me")

	r1, created, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{
		BodyTop: str("Looks good"),
	})
	s.Require().NoError(err)
	s.True(created)
	s.Equal("Looks good", r1.BodyTop)

	r2, created, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{
		ShipIt: boolean(true),
	})
	s.Require().NoError(err)
	s.False(created)
	s.Equal(r1.ID, r2.ID)
	s.True(r2.ShipIt)
	s.Equal("Looks good", r2.BodyTop)

	pending, err := s.Service.PendingReview(s.Reviewer, rr, nil)
	if s.NoError(err) {
		s.Equal(r1.ID, pending.ID)
	}
	_, err = s.Service.PendingReview(s.Owner, rr, nil)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindReview, Key: "draft"}, err)

	// Unpublished reviews are private
	list, err := s.Service.Reviews(rr)
	if s.NoError(err) {
		s.Empty(list)
	}
	_, err = s.Service.Review(s.Owner, rr, nil, r1.ID)
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.Review(nil, rr, nil, r1.ID)
	s.Equal(reviews.ErrNotLoggedIn, err)

	_, err = s.Service.UpdateReview(s.Owner, r2, workflow.ReviewChanges{BodyTop: str("hijack")})
	s.Equal(reviews.ErrPermissionDenied, err)
}

func (s *Suite) TestPublishReview() {
	rr := s.publishedRequest("Review me")
	s.tick()
	r, _, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{
		BodyTop: str("Ship it!"),
		ShipIt:  boolean(true),
		Public:  true,
	})
	s.Require().NoError(err)
	s.True(r.Public)
	s.Equal(s.Clock.Now().UTC(), r.Timestamp)

	got, err := s.Service.Review(nil, rr, nil, r.ID)
	if s.NoError(err) {
		s.Equal("Ship it!", got.BodyTop)
	}

	// Published reviews never change
	_, err = s.Service.UpdateReview(s.Reviewer, got, workflow.ReviewChanges{BodyTop: str("Wait")})
	s.Equal(reviews.ErrPermissionDenied, err)
	s.Equal(reviews.ErrPermissionDenied, s.Service.DeleteReview(s.Reviewer, got))

	// A new call makes a new review
	r2, created, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{})
	s.Require().NoError(err)
	s.True(created)
	s.NotEqual(r.ID, r2.ID)
	s.NoError(s.Service.DeleteReview(s.Reviewer, r2))

	types := s.Events.types()
	s.Equal(reviews.EventReviewPublished, types[len(types)-1])
	e := s.Events.events[len(s.Events.events)-1]
	s.Equal([]string{"qa", "owner"}, e.Targets)
}

func (s *Suite) TestReplies() {
	rr := s.publishedRequest("Reply to me")
	base, _, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{
		BodyTop:    str("top"),
		BodyBottom: str("bottom"),
		Public:     true,
	})
	s.Require().NoError(err)

	reply, created, err := s.Service.GetOrCreateReview(s.Owner, rr, base, workflow.ReviewChanges{
		BodyTop: str("Thanks"),
		ShipIt:  boolean(true),
	})
	s.Require().NoError(err)
	s.True(created)
	s.True(reply.IsReply())
	s.Equal(base.ID, reply.BodyTopReplyToID)
	s.Equal(0, reply.BodyBottomReplyToID)
	s.False(reply.ShipIt, "replies cannot ship it")

	reply, err = s.Service.UpdateReview(s.Owner, reply, workflow.ReviewChanges{
		BodyTop:    str(""),
		BodyBottom: str("Agreed"),
	})
	s.Require().NoError(err)
	s.Equal(0, reply.BodyTopReplyToID)
	s.Equal(base.ID, reply.BodyBottomReplyToID)

	// Replies are scoped to their base review
	_, err = s.Service.Review(s.Owner, rr, nil, reply.ID)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindReview, Key: reply.ID}, err)
	got, err := s.Service.Review(s.Owner, rr, base, reply.ID)
	if s.NoError(err) {
		s.Equal("Agreed", got.BodyBottom)
	}

	// A reply cannot be a base
	_, _, err = s.Service.GetOrCreateReview(s.Owner, rr, reply, workflow.ReviewChanges{})
	s.True(reviews.IsNotFound(err))

	_, err = s.Service.UpdateReview(s.Owner, reply, workflow.ReviewChanges{Public: true})
	s.Require().NoError(err)
	replies, err := s.Service.Replies(base)
	if s.NoError(err) && s.Len(replies, 1) {
		s.Equal(reply.ID, replies[0].ID)
	}
	s.Equal(reviews.EventReplyPublished, s.Events.types()[len(s.Events.events)-1])
}

// commentFixture sets up a published diff and a pending review of it.
func (s *Suite) commentFixture() (*reviews.ReviewRequest, *reviews.FileDiff, *reviews.Review) {
	ctx := context.Background()
	rr := s.publishedRequest("Comment on me")
	s.uploadDiff(ctx, rr, readmeDiff)
	rr, err := s.Service.PublishDraft(s.Owner, s.reload(rr))
	s.Require().NoError(err)
	ds, err := s.Service.DiffSetByRevision(rr, 1)
	s.Require().NoError(err)
	files, err := s.Store.FileDiffs(ds.ID)
	s.Require().NoError(err)
	s.Require().Len(files, 1)
	r, _, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{})
	s.Require().NoError(err)
	return rr, files[0], r
}

func (s *Suite) TestDiffCommentValidation() {
	rr, fd, r := s.commentFixture()

	_, err := s.Service.CreateDiffComment(s.Reviewer, rr, r, workflow.DiffCommentInput{
		Text: str("no location"),
	})
	s.assertInvalid(err, "filediff_id", "This field is required")
	s.assertInvalid(err, "first_line", "This field is required")
	s.assertInvalid(err, "num_lines", "This field is required")

	_, err = s.Service.CreateDiffComment(s.Reviewer, rr, r, workflow.DiffCommentInput{
		FileDiffID: integer(9999),
		FirstLine:  integer(1),
		NumLines:   integer(1),
		Text:       str("bad file"),
	})
	s.assertInvalid(err, "filediff_id", "This is not a valid filediff ID")

	_, err = s.Service.CreateDiffComment(s.Reviewer, rr, r, workflow.DiffCommentInput{
		FileDiffID:      integer(fd.ID),
		InterFileDiffID: integer(fd.ID),
		FirstLine:       integer(1),
		NumLines:        integer(1),
		Text:            str("self interdiff"),
	})
	s.assertInvalid(err, "interfilediff_id", "This cannot be the same as filediff_id")

	_, err = s.Service.CreateDiffComment(s.Owner, rr, r, workflow.DiffCommentInput{
		FileDiffID: integer(fd.ID),
		FirstLine:  integer(1),
		NumLines:   integer(1),
		Text:       str("not mine"),
	})
	s.Equal(reviews.ErrPermissionDenied, err)
}

func (s *Suite) TestDiffComments() {
	rr, fd, r := s.commentFixture()

	c, err := s.Service.CreateDiffComment(s.Reviewer, rr, r, workflow.DiffCommentInput{
		FileDiffID: integer(fd.ID),
		FirstLine:  integer(10),
		NumLines:   integer(3),
		Text:       str("Why?"),
	})
	s.Require().NoError(err)
	s.Equal(reviews.KindDiffComment, c.Kind())

	c, err = s.Service.UpdateDiffComment(s.Reviewer, r, c, workflow.DiffCommentInput{
		Text: str("Why this?"),
	})
	s.Require().NoError(err)
	s.Equal(10, c.FirstLine)

	// Pending comments are hidden from others
	visible, err := s.Service.FileDiffComments(s.Owner, fd, workflow.FileDiffCommentFilter{})
	if s.NoError(err) {
		s.Empty(visible)
	}
	visible, err = s.Service.FileDiffComments(s.Reviewer, fd, workflow.FileDiffCommentFilter{Line: 10})
	if s.NoError(err) {
		s.Len(visible, 1)
	}

	r, err = s.Service.UpdateReview(s.Reviewer, r, workflow.ReviewChanges{Public: true})
	s.Require().NoError(err)
	_, err = s.Service.UpdateDiffComment(s.Reviewer, r, c, workflow.DiffCommentInput{Text: str("edit")})
	s.Equal(reviews.ErrPermissionDenied, err)

	reply, _, err := s.Service.GetOrCreateReview(s.Owner, rr, r, workflow.ReviewChanges{})
	s.Require().NoError(err)

	_, err = s.Service.CreateDiffComment(s.Owner, rr, reply, workflow.DiffCommentInput{
		ReplyToID: integer(9999),
		Text:      str("Because"),
	})
	s.assertInvalid(err, "reply_to_id", "This is not a valid comment ID")

	rc, err := s.Service.CreateDiffComment(s.Owner, rr, reply, workflow.DiffCommentInput{
		ReplyToID: integer(c.ID),
		FirstLine: integer(99),
		Text:      str("Because"),
	})
	s.Require().NoError(err)
	s.Equal(reviews.KindReplyDiffComment, rc.Kind())
	s.Equal(c.ID, rc.ReplyToID)
	s.Equal(fd.ID, rc.FileDiffID)
	s.Equal(10, rc.FirstLine)
	s.Equal(3, rc.NumLines)

	rc, err = s.Service.UpdateDiffComment(s.Owner, reply, rc, workflow.DiffCommentInput{
		FirstLine: integer(1),
		Text:      str("Because reasons"),
	})
	s.Require().NoError(err)
	s.Equal(10, rc.FirstLine)
	s.Equal("Because reasons", rc.Text)

	list, err := s.Service.DiffComments(s.Owner, reply)
	if s.NoError(err) {
		s.Len(list, 1)
	}
	_, err = s.Service.DiffComment(s.Owner, reply, c.ID)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindDiffComment, Key: c.ID}, err)
	_, err = s.Service.DiffComments(s.Reviewer, reply)
	s.Equal(reviews.ErrPermissionDenied, err)

	s.NoError(s.Service.DeleteDiffComment(s.Owner, reply, rc))
	list, err = s.Service.DiffComments(s.Owner, reply)
	if s.NoError(err) {
		s.Empty(list)
	}
}

func (s *Suite) TestScreenshotComments() {
	ctx := context.Background()
	rr := s.publishedRequest("Look at this")
	ss, err := s.Service.UploadScreenshot(ctx, s.Owner, rr, workflow.ScreenshotUpload{
		Filename: "shot.png",
		Data:     stringReader("png"),
	})
	s.Require().NoError(err)
	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)

	r, _, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{})
	s.Require().NoError(err)
	in := workflow.ScreenshotCommentInput{
		ScreenshotID: integer(ss.ID),
		X:            integer(1),
		Y:            integer(2),
		W:            integer(30),
		H:            integer(40),
		Text:         str("Blurry"),
	}
	c, err := s.Service.CreateScreenshotComment(s.Reviewer, rr, r, in)
	s.Require().NoError(err)

	on, err := s.Service.ScreenshotCommentsOn(s.Reviewer, ss)
	if s.NoError(err) && s.Len(on, 1) {
		s.Equal(c.ID, on[0].ID)
	}
	on, err = s.Service.ScreenshotCommentsOn(s.Owner, ss)
	if s.NoError(err) {
		s.Empty(on, "private review comments are hidden")
	}

	in.ScreenshotID = integer(9999)
	_, err = s.Service.CreateScreenshotComment(s.Reviewer, rr, r, in)
	s.assertInvalid(err, "screenshot_id", "This is not a valid screenshot ID")
	_, err = s.Service.CreateScreenshotComment(s.Reviewer, rr, r, workflow.ScreenshotCommentInput{})
	s.assertInvalid(err, "w", "This field is required")

	c, err = s.Service.UpdateScreenshotComment(s.Reviewer, r, c, workflow.ScreenshotCommentInput{W: integer(50)})
	s.Require().NoError(err)
	s.Equal(50, c.W)
	s.Equal(40, c.H)

	r, err = s.Service.UpdateReview(s.Reviewer, r, workflow.ReviewChanges{Public: true})
	s.Require().NoError(err)
	reply, _, err := s.Service.GetOrCreateReview(s.Owner, rr, r, workflow.ReviewChanges{})
	s.Require().NoError(err)
	rc, err := s.Service.CreateScreenshotComment(s.Owner, rr, reply, workflow.ScreenshotCommentInput{
		ReplyToID: integer(c.ID),
		Text:      str("Fixed"),
	})
	s.Require().NoError(err)
	s.Equal(reviews.KindReplyScreenshotComment, rc.Kind())
	s.Equal(50, rc.W)
	s.Equal(ss.ID, rc.ScreenshotID)

	_, err = s.Service.CreateScreenshotComment(s.Owner, rr, reply, workflow.ScreenshotCommentInput{
		ReplyToID: integer(rc.ID),
		Text:      str("Replying to a reply"),
	})
	s.assertInvalid(err, "reply_to_id", "This is not a valid screenshot comment ID")

	got, err := s.Service.ScreenshotComment(s.Owner, reply, rc.ID)
	if s.NoError(err) {
		s.Equal("Fixed", got.Text)
	}
	s.NoError(s.Service.DeleteScreenshotComment(s.Owner, reply, rc))
	list, err := s.Service.ScreenshotComments(s.Owner, reply)
	if s.NoError(err) {
		s.Empty(list)
	}
}
