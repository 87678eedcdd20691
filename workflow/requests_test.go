// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"context"
	"errors"
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func (s *Suite) TestCreateReviewRequest() {
	rr := s.newRequest()
	s.Equal(reviews.StatusPending, rr.Status)
	s.False(rr.Public)
	s.Equal("owner", rr.Submitter)
	s.Equal(s.Repo.ID, rr.RepositoryID)

	d, err := s.Store.Draft(rr.ID)
	if s.NoError(err) {
		s.False(d.HasChangeDescription)
	}
}

func (s *Suite) TestCreateReviewRequestByPath() {
	ctx := context.Background()
	for _, name := range []string{s.Repo.Path, s.Repo.MirrorPath, strconv.Itoa(s.Repo.ID)} {
		rr, err := s.Service.CreateReviewRequest(ctx, s.Owner, workflow.NewReviewRequest{Repository: name})
		if s.NoError(err, name) {
			s.Equal(s.Repo.ID, rr.RepositoryID)
		}
	}

	for _, name := range []string{"", "/no/such/repo", "9999"} {
		_, err := s.Service.CreateReviewRequest(ctx, s.Owner, workflow.NewReviewRequest{Repository: name})
		s.Equal(reviews.ErrInvalidRepository{Repository: name}, err)
	}
}

func (s *Suite) TestCreateReviewRequestPermissions() {
	ctx := context.Background()
	_, err := s.Service.CreateReviewRequest(ctx, nil, workflow.NewReviewRequest{Repository: s.Repo.Path})
	s.Equal(reviews.ErrNotLoggedIn, err)

	private := &reviews.Repository{Name: "private", Path: "/private", Users: []string{"reviewer"}}
	s.Require().NoError(s.Store.CreateRepository(private))
	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, workflow.NewReviewRequest{Repository: "/private"})
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.CreateReviewRequest(ctx, s.Reviewer, workflow.NewReviewRequest{Repository: "/private"})
	s.NoError(err)
}

func (s *Suite) TestSubmitAs() {
	ctx := context.Background()
	nr := workflow.NewReviewRequest{Repository: s.Repo.Path, SubmitAs: "reviewer"}
	_, err := s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.Equal(reviews.ErrPermissionDenied, err)

	// Submitting as yourself needs no permission
	nr.SubmitAs = "owner"
	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.NoError(err)

	bot := s.user(&reviews.User{
		Username:    "bot",
		Permissions: []string{reviews.PermCanSubmitAsAnotherUser},
	})
	nr.SubmitAs = "reviewer"
	rr, err := s.Service.CreateReviewRequest(ctx, bot, nr)
	if s.NoError(err) {
		s.Equal("reviewer", rr.Submitter)
	}

	nr.SubmitAs = "nobody"
	_, err = s.Service.CreateReviewRequest(ctx, bot, nr)
	s.Equal(reviews.ErrInvalidUser{Username: "nobody"}, err)

	// The resolver may create users
	nr.SubmitAs = "ldapuser"
	rr, err = s.Service.CreateReviewRequest(ctx, bot, nr)
	if s.NoError(err) {
		s.Equal("ldapuser", rr.Submitter)
	}
}

func (s *Suite) TestCreateWithChangeNum() {
	ctx := context.Background()
	s.SCM.changesets[42] = &reviews.Changeset{
		ChangeNum:   42,
		Summary:     "Change 42",
		Description: "Does things",
		BugsClosed:  []string{"7"},
		Files:       []string{"/trunk/main.c"},
	}
	s.SCM.changesets[43] = &reviews.Changeset{ChangeNum: 43}

	nr := workflow.NewReviewRequest{Repository: s.Repo.Path, ChangeNum: 42}
	rr, err := s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	if s.NoError(err) {
		s.Equal("Change 42", rr.Summary)
		s.Equal([]string{"7"}, rr.BugsClosed)
		s.False(rr.Public)
		d, err := s.Store.Draft(rr.ID)
		if s.NoError(err) {
			s.Equal("Change 42", d.Summary)
		}
	}

	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.Equal(reviews.ErrChangeNumberInUse{ReviewRequestID: rr.ID}, err)

	nr.ChangeNum = 99
	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.Equal(reviews.ErrInvalidChangeNumber, err)

	nr.ChangeNum = 43
	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.Equal(reviews.ErrEmptyChangeset, err)

	s.SCM.notImplemented = true
	_, err = s.Service.CreateReviewRequest(ctx, s.Owner, nr)
	s.Equal(reviews.ErrNotImplemented, err)
}

func (s *Suite) TestReadReviewRequest() {
	rr := s.newRequest()

	_, err := s.Service.ReviewRequest(s.Owner, rr.ID)
	s.NoError(err)
	_, err = s.Service.ReviewRequest(s.Reviewer, rr.ID)
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.ReviewRequest(nil, rr.ID)
	s.Equal(reviews.ErrNotLoggedIn, err)
	_, err = s.Service.ReviewRequest(s.Admin, rr.ID)
	s.NoError(err)

	published := s.publishedRequest("Visible")
	_, err = s.Service.ReviewRequest(nil, published.ID)
	s.NoError(err)

	_, err = s.Service.ReviewRequest(s.Owner, 9999)
	s.True(reviews.IsNotFound(err))
}

func (s *Suite) TestInviteOnlyTargetGroup() {
	secret := &reviews.Group{Name: "secret", InviteOnly: true, Members: []string{"reviewer"}}
	s.Require().NoError(s.Store.CreateGroup(secret))
	rr := s.newRequest()
	_, rr, err := s.Service.UpdateDraft(s.Owner, rr, workflow.DraftChanges{
		TargetGroups: str("secret"),
		Public:       true,
	}, workflow.DraftOptions{})
	s.Require().NoError(err)

	_, err = s.Service.ReviewRequest(s.Reviewer, rr.ID)
	s.NoError(err)
	_, err = s.Service.ReviewRequest(s.Admin, rr.ID)
	s.NoError(err)
	outsider := s.user(&reviews.User{Username: "outsider"})
	_, err = s.Service.ReviewRequest(outsider, rr.ID)
	s.Equal(reviews.ErrPermissionDenied, err)
}

func (s *Suite) TestListReviewRequests() {
	private := s.newRequest()
	s.tick()
	public := s.publishedRequest("Listed")

	q := &reviews.ReviewRequestQuery{RepositoryID: s.Repo.ID}
	list, err := s.Service.ReviewRequests(s.Reviewer, q)
	if s.NoError(err) && s.Len(list, 1) {
		s.Equal(public.ID, list[0].ID)
	}
	list, err = s.Service.ReviewRequests(s.Owner, q)
	if s.NoError(err) && s.Len(list, 2) {
		s.Equal(public.ID, list[0].ID)
		s.Equal(private.ID, list[1].ID)
	}
	n, err := s.Service.CountReviewRequests(nil, q)
	if s.NoError(err) {
		s.Equal(1, n)
	}
	s.Equal("", q.Viewer, "query is not modified")
}

func (s *Suite) TestSetStatus() {
	rr := s.publishedRequest("Status")

	// Submitted by its owner
	rr, err := s.Service.SetStatus(s.Owner, rr, reviews.StatusSubmitted)
	s.Require().NoError(err)
	s.Equal(reviews.StatusSubmitted, s.reload(rr).Status)

	// Someone else may not discard it
	_, err = s.Service.SetStatus(s.Reviewer, rr, reviews.StatusDiscarded)
	s.Equal(reviews.ErrPermissionDenied, err)
	s.Equal(reviews.StatusSubmitted, s.reload(rr).Status)

	// Setting the same status is a no-op, even without permission
	_, err = s.Service.SetStatus(s.Reviewer, rr, reviews.StatusSubmitted)
	s.NoError(err)

	_, err = s.Service.SetStatus(s.Owner, rr, reviews.Status("bogus"))
	s.IsType(reviews.ErrInvalidInput{}, err)

	_, err = s.Service.SetStatus(nil, rr, reviews.StatusPending)
	s.Equal(reviews.ErrNotLoggedIn, err)

	// Reopening a submitted request keeps it public
	rr, err = s.Service.SetStatus(s.Owner, rr, reviews.StatusPending)
	s.Require().NoError(err)
	s.True(s.reload(rr).Public)

	s.Equal([]string{
		reviews.EventReviewRequestPublished,
		reviews.EventReviewRequestClosed,
		reviews.EventReviewRequestReopened,
	}, s.Events.types())
}

func (s *Suite) TestReopenDiscarded() {
	rr := s.publishedRequest("Discard me")
	rr, err := s.Service.SetStatus(s.Owner, rr, reviews.StatusDiscarded)
	s.Require().NoError(err)
	_, err = s.Store.Draft(rr.ID)
	s.True(reviews.IsNotFound(err))

	changer := s.user(&reviews.User{
		Username:    "changer",
		Permissions: []string{reviews.PermCanChangeStatus},
	})
	rr, err = s.Service.SetStatus(changer, rr, reviews.StatusPending)
	s.Require().NoError(err)
	s.False(rr.Public)
	s.Equal(reviews.StatusPending, rr.Status)
	d, err := s.Store.Draft(rr.ID)
	if s.NoError(err) {
		s.Equal("Discard me", d.Summary)
	}
}

func (s *Suite) TestDeleteReviewRequest() {
	ctx := context.Background()
	rr := s.publishedRequest("Delete me")
	ss, err := s.Service.UploadScreenshot(ctx, s.Owner, rr, workflow.ScreenshotUpload{
		Filename: "shot.png",
		Data:     stringReader("png"),
	})
	s.Require().NoError(err)

	err = s.Service.DeleteReviewRequest(ctx, s.Owner, rr)
	s.Equal(reviews.ErrPermissionDenied, err)

	deleter := s.user(&reviews.User{
		Username:    "deleter",
		Permissions: []string{reviews.PermDeleteReviewRequest},
	})
	s.NoError(s.Service.DeleteReviewRequest(ctx, deleter, rr))
	_, err = s.Store.ReviewRequest(rr.ID)
	s.True(reviews.IsNotFound(err))
	s.NotContains(s.Files.data, ss.Path)
}

func (s *Suite) TestLastUpdate() {
	ctx := context.Background()
	rr := s.publishedRequest("Updates")
	lu, err := s.Service.LastUpdate(rr)
	if s.NoError(err) {
		s.Equal(reviews.UpdateReviewRequest, lu.Type)
		s.Equal("Review request updated", lu.Summary)
		s.Equal("owner", lu.User)
		s.Equal(rr.LastUpdated, lu.Timestamp)
	}

	s.tick()
	s.uploadDiff(ctx, rr, readmeDiff)
	rr, err = s.Service.PublishDraft(s.Owner, s.reload(rr))
	s.Require().NoError(err)
	s.tick()
	lu, err = s.Service.LastUpdate(rr)
	if s.NoError(err) {
		// Publishing the diff also touched the request at the
		// same instant; the request wins ties.
		s.Equal(reviews.UpdateReviewRequest, lu.Type)
	}

	review, _, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{Public: true})
	s.Require().NoError(err)
	lu, err = s.Service.LastUpdate(rr)
	if s.NoError(err) {
		s.Equal(reviews.UpdateReview, lu.Type)
		s.Equal("New review", lu.Summary)
		s.Equal("reviewer", lu.User)
	}

	s.tick()
	_, _, err = s.Service.GetOrCreateReview(s.Owner, rr, review, workflow.ReviewChanges{Public: true})
	s.Require().NoError(err)
	lu, err = s.Service.LastUpdate(rr)
	if s.NoError(err) {
		s.Equal(reviews.UpdateReply, lu.Type)
		s.Equal("New reply", lu.Summary)
		s.Equal("owner", lu.User)
	}
}

func (s *Suite) TestLastUpdateDiff() {
	rr := s.publishedRequest("Diff update")
	s.tick()
	// A diff published without touching the request's own
	// timestamp, as an import might do.
	ds := &reviews.DiffSet{ReviewRequestID: rr.ID, Revision: 1, Timestamp: s.Clock.Now()}
	s.Require().NoError(s.Store.CreateDiffSet(ds, nil))
	lu, err := s.Service.LastUpdate(rr)
	if s.NoError(err) {
		s.Equal(reviews.UpdateDiff, lu.Type)
		s.Equal("Diff updated", lu.Summary)
		s.Equal("", lu.User)
	}
}

func (s *Suite) TestRepositoryInfo() {
	ctx := context.Background()
	info, err := s.Service.RepositoryInfo(ctx, s.Repo)
	if s.NoError(err) {
		s.Equal("repo", info["name"])
	}
	s.SCM.notImplemented = true
	_, err = s.Service.RepositoryInfo(ctx, s.Repo)
	s.Equal(reviews.ErrNotImplemented, err)
}

func (s *Suite) TestGroupsAndRepositories() {
	hidden := &reviews.Group{Name: "hidden", Members: []string{"owner"}}
	secret := &reviews.Group{Name: "secret", Visible: true, InviteOnly: true}
	s.Require().NoError(s.Store.CreateGroup(hidden))
	s.Require().NoError(s.Store.CreateGroup(secret))

	names := func(p *reviews.User) []string {
		groups, err := s.Service.Groups(p, reviews.GroupQuery{})
		s.Require().NoError(err)
		var result []string
		for _, g := range groups {
			result = append(result, g.Name)
		}
		return result
	}
	s.Equal([]string{"qa"}, names(nil))
	s.Equal([]string{"hidden", "qa"}, names(s.Owner))
	s.Equal([]string{"qa", "secret"}, names(s.Admin))

	_, err := s.Service.Group(s.Reviewer, "secret")
	s.Equal(reviews.ErrPermissionDenied, err)
	g, err := s.Service.Group(s.Reviewer, "qa")
	if s.NoError(err) {
		members, err := s.Service.GroupMembers(g)
		if s.NoError(err) && s.Len(members, 1) {
			s.Equal("reviewer", members[0].Username)
		}
	}

	private := &reviews.Repository{Name: "private", Path: "/private"}
	s.Require().NoError(s.Store.CreateRepository(private))
	repos, err := s.Service.Repositories(s.Owner)
	if s.NoError(err) {
		s.Len(repos, 1)
	}
	repos, err = s.Service.Repositories(s.Admin)
	if s.NoError(err) {
		s.Len(repos, 2)
	}
	_, err = s.Service.Repository(nil, private.ID)
	s.Equal(reviews.ErrNotLoggedIn, err)
}

func (s *Suite) TestDeleteReviewRequestLogsStorageFailure() {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	s.Service.Logger = logger
	rr := s.publishedRequest("Delete me")
	ss, err := s.Service.UploadScreenshot(ctx, s.Owner, rr, workflow.ScreenshotUpload{
		Filename: "shot.png",
		Data:     stringReader("png"),
	})
	s.Require().NoError(err)
	s.Files.deleteErr = errors.New("disk on fire")

	s.NoError(s.Service.DeleteReviewRequest(ctx, s.Admin, rr))
	entry := hook.LastEntry()
	if s.NotNil(entry) {
		s.Equal(logrus.WarnLevel, entry.Level)
		s.Equal(rr.ID, entry.Data["review_request"])
		s.Equal(ss.Path, entry.Data["path"])
	}
}
