// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

func (s *Suite) TestDraftSingleton() {
	rr := s.newRequest()
	d1, err := s.Service.PrepareDraft(s.Owner, rr)
	s.Require().NoError(err)
	d2, err := s.Service.PrepareDraft(s.Owner, rr)
	s.Require().NoError(err)
	s.Equal(d1.ID, d2.ID)

	_, err = s.Service.PrepareDraft(s.Reviewer, rr)
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.Draft(nil, rr)
	s.Equal(reviews.ErrNotLoggedIn, err)

	editor := s.user(&reviews.User{
		Username:    "editor",
		Permissions: []string{reviews.PermCanEditReviewRequest},
	})
	d3, err := s.Service.Draft(editor, rr)
	if s.NoError(err) {
		s.Equal(d1.ID, d3.ID)
	}
}

func (s *Suite) TestPublishDraft() {
	rr := s.newRequest()
	d, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Summary:      str("Fix bug"),
		Description:  str("It was broken"),
		TestingDone:  str("Ran it"),
		Branch:       str("trunk"),
		BugsClosed:   str("#12, 34,,"),
		TargetGroups: str("Quality Assurance"),
		TargetPeople: str("reviewer, ldapuser"),
	}, workflow.DraftOptions{})
	s.Require().NoError(err)
	s.Equal("Fix bug", d.Summary)
	s.Equal([]string{"12", "34"}, d.BugsClosed)
	s.Equal([]string{"qa"}, d.TargetGroups)
	s.Equal([]string{"reviewer", "ldapuser"}, d.TargetPeople)
	s.Equal("", s.reload(rr).Summary, "draft changes are not visible yet")

	s.tick()
	published, err := s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	s.True(published.Public)
	s.Equal("Fix bug", published.Summary)
	s.Equal("trunk", published.Branch)
	s.Equal(s.Clock.Now().UTC(), published.LastUpdated)
	s.Empty(published.Changes, "first publication has no change description")

	fresh := s.reload(rr)
	s.Equal("Fix bug", fresh.Summary)
	_, err = s.Service.Draft(s.Owner, fresh)
	s.True(reviews.IsNotFound(err))

	// Publishing again requires a new draft
	_, err = s.Service.PublishDraft(s.Owner, fresh)
	s.True(reviews.IsNotFound(err))
	d2, err := s.Service.PrepareDraft(s.Owner, fresh)
	if s.NoError(err) {
		s.NotEqual(d.ID, d2.ID)
		s.True(d2.HasChangeDescription)
		s.Equal("Fix bug", d2.Summary)
	}

	if s.Len(s.Events.events, 1) {
		e := s.Events.events[0]
		s.Equal(reviews.EventReviewRequestPublished, e.Type)
		s.Equal("owner", e.Actor)
		s.Equal(rr.ID, e.ReviewRequestID)
		s.Equal([]string{"qa", "reviewer", "ldapuser"}, e.Targets)
	}
}

func (s *Suite) TestUpdateDraftAllOrNothing() {
	rr := s.newRequest()
	_, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Summary:      str("Good summary"),
		TargetGroups: str("qa, nosuchgroup"),
		TargetPeople: str("nobody"),
		Public:       true,
	}, workflow.DraftOptions{})
	s.assertInvalid(err, "target_groups", "nosuchgroup")
	s.assertInvalid(err, "target_people", "nobody")

	d, err := s.Service.Draft(s.Owner, rr)
	if s.NoError(err) {
		s.Equal("", d.Summary)
		s.Empty(d.TargetGroups)
	}
	s.False(s.reload(rr).Public)
	s.Empty(s.Events.events)
}

func (s *Suite) TestUpdateDraftAlwaysSave() {
	rr := s.newRequest()
	_, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Summary:      str("Good summary"),
		TargetGroups: str("qa, nosuchgroup"),
		Public:       true,
	}, workflow.DraftOptions{AlwaysSave: true})
	s.assertInvalid(err, "target_groups", "nosuchgroup")

	d, err := s.Service.Draft(s.Owner, rr)
	if s.NoError(err) {
		s.Equal("Good summary", d.Summary)
		s.Equal([]string{"qa"}, d.TargetGroups)
	}
	s.False(s.reload(rr).Public, "invalid drafts are never published")
}

func (s *Suite) TestSummaryNewline() {
	rr := s.newRequest()
	_, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Summary: str("two\nlines"),
	}, workflow.DraftOptions{})
	s.assertInvalid(err, "summary", "Summary cannot contain newlines")
}

func (s *Suite) TestChangeDescription() {
	rr := s.newRequest()
	_, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		ChangeDescription: str("first"),
	}, workflow.DraftOptions{})
	s.assertInvalid(err, "changedescription", "Change descriptions cannot be used for drafts of new review requests")

	rr = s.publishedRequest("Described")
	s.tick()
	_, rr, err = s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Description:       str("Now better"),
		ChangeDescription: str("Improved the description"),
		Public:            true,
	}, workflow.DraftOptions{})
	s.Require().NoError(err)
	if s.Len(rr.Changes, 1) {
		s.Equal("Improved the description", rr.Changes[0].Text)
		s.Equal(s.Clock.Now().UTC(), rr.Changes[0].Timestamp)
	}
	s.Equal("Now better", rr.Description)
}

func (s *Suite) TestDiscardDraft() {
	rr := s.publishedRequest("Keep me")
	_, _, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		Summary: str("Lose me"),
	}, workflow.DraftOptions{})
	s.Require().NoError(err)

	s.Equal(reviews.ErrPermissionDenied, s.Service.DiscardDraft(s.Reviewer, rr))
	s.NoError(s.Service.DiscardDraft(s.Owner, rr))
	s.Equal("Keep me", s.reload(rr).Summary)
	s.True(reviews.IsNotFound(s.Service.DiscardDraft(s.Owner, rr)))
}
