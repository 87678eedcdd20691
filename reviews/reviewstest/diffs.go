// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviewstest

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

// TestDiffSets checks that only published diffsets are listed, in
// revision order.
func (s *Suite) TestDiffSets() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)

	ds := &reviews.DiffSet{
		ReviewRequestID: rr.ID,
		Name:            "diff",
		RepositoryID:    repo.ID,
		BaseDir:         "/",
	}
	files := []*reviews.FileDiff{
		{
			SourceFile:     "a.go",
			DestFile:       "a.go",
			SourceRevision: "abc123",
			DestDetail:     "New Change",
			Diff:           []byte("--- a.go\n+++ a.go\n"),
		},
		{
			SourceFile:     "b.go",
			DestFile:       "b.go",
			SourceRevision: "PRE-CREATION",
		},
	}
	if !s.NoError(s.Store.CreateDiffSet(ds, files)) {
		return
	}
	s.NotZero(ds.ID)
	s.True(s.Clock.Now().Equal(ds.Timestamp))
	for _, fd := range files {
		s.NotZero(fd.ID)
		s.Equal(ds.ID, fd.DiffSetID)
	}

	published, err := s.Store.DiffSets(rr.ID)
	if s.NoError(err) {
		s.Empty(published)
	}

	ds.Revision = 1
	s.NoError(s.Store.SaveDiffSet(ds))
	published, err = s.Store.DiffSets(rr.ID)
	if s.NoError(err) && s.Len(published, 1) {
		s.Equal(ds.ID, published[0].ID)
		s.Equal(1, published[0].Revision)
	}

	got, err := s.Store.FileDiffs(ds.ID)
	if s.NoError(err) && s.Len(got, 2) {
		s.Equal("a.go", got[0].SourceFile)
		s.Equal([]byte("--- a.go\n+++ a.go\n"), got[0].Diff)
		s.True(got[1].IsNew())
	}

	fd, err := s.Store.FileDiff(files[0].ID)
	if s.NoError(err) {
		s.Equal("abc123", fd.SourceRevision)
	}

	second := &reviews.DiffSet{ReviewRequestID: rr.ID, Name: "diff", Revision: 2}
	s.NoError(s.Store.CreateDiffSet(second, nil))
	published, err = s.Store.DiffSets(rr.ID)
	if s.NoError(err) && s.Len(published, 2) {
		s.Equal(1, published[0].Revision)
		s.Equal(2, published[1].Revision)
	}

	s.NoError(s.Store.DeleteDiffSet(ds.ID))
	_, err = s.Store.DiffSet(ds.ID)
	s.assertNotFound(err)
	_, err = s.Store.FileDiff(files[0].ID)
	s.assertNotFound(err)
}

// TestScreenshots checks screenshot storage.
func (s *Suite) TestScreenshots() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)

	ss := &reviews.Screenshot{
		ReviewRequestID: rr.ID,
		DraftCaption:    "caption",
		Path:            "screenshots/a.png",
	}
	if !s.NoError(s.Store.CreateScreenshot(ss)) {
		return
	}
	s.NotZero(ss.ID)

	ss.Caption = ss.DraftCaption
	ss.Active = true
	s.NoError(s.Store.SaveScreenshot(ss))

	got, err := s.Store.Screenshot(ss.ID)
	if s.NoError(err) {
		s.Equal("caption", got.Caption)
		s.True(got.Active)
	}

	all, err := s.Store.Screenshots(rr.ID)
	if s.NoError(err) && s.Len(all, 1) {
		s.Equal(ss.ID, all[0].ID)
	}

	_, err = s.Store.Screenshot(ss.ID + 100000)
	s.assertNotFound(err)
}
