// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"context"
	"io"
	"io/ioutil"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

const readmeDiff = `Index: README
===================================================================
--- README	(revision 3)
+++ README	(working copy)
@@ -1,2 +1,2 @@
 hello
-world
+there
`

const mainDiff = `Index: src/main.c
===================================================================
--- src/main.c	(revision 5)
+++ src/main.c	(working copy)
@@ -1 +1 @@
-int main() {}
+int main(void) {}
`

func stringReader(s string) io.Reader {
	return strings.NewReader(s)
}

// uploadDiff uploads a diff whose files all exist in the repository.
func (s *Suite) uploadDiff(ctx context.Context, rr *reviews.ReviewRequest, diff string) *reviews.DiffSet {
	s.SCM.files["/README@3"] = true
	s.SCM.files["/src/main.c@5"] = true
	ds, err := s.Service.UploadDiff(ctx, s.Owner, rr, workflow.DiffUpload{
		Name: "diff",
		Data: []byte(diff),
	})
	s.Require().NoError(err)
	return ds
}

func (s *Suite) TestUploadDiff() {
	ctx := context.Background()
	rr := s.newRequest()
	ds := s.uploadDiff(ctx, rr, readmeDiff)
	s.Equal(0, ds.Revision)

	d, err := s.Store.Draft(rr.ID)
	if s.NoError(err) {
		s.Equal(ds.ID, d.DiffSetID)
	}
	// Not published yet
	published, err := s.Service.DiffSets(rr)
	if s.NoError(err) {
		s.Empty(published)
	}

	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	ds, err = s.Service.DiffSetByRevision(rr, 1)
	s.Require().NoError(err)
	files, err := s.Store.FileDiffs(ds.ID)
	if s.NoError(err) && s.Len(files, 1) {
		s.Equal("README", files[0].SourceFile)
		s.Equal("3", files[0].SourceRevision)

		fd, err := s.Service.FileDiff(ds, files[0].ID)
		if s.NoError(err) {
			data, err := s.Service.RenderFileDiff(ds, fd, false)
			if s.NoError(err) {
				s.False(data.Binary)
				s.NotEmpty(data.ChangedChunkIndexes)
			}
		}
	}

	// A second diff becomes revision 2
	s.uploadDiff(ctx, rr, mainDiff)
	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	all, err := s.Service.DiffSets(rr)
	if s.NoError(err) && s.Len(all, 2) {
		s.Equal(1, all[0].Revision)
		s.Equal(2, all[1].Revision)
	}
	_, err = s.Service.DiffSetByRevision(rr, 3)
	s.True(reviews.IsNotFound(err))
}

func (s *Suite) TestUploadDiffReplacesPending() {
	ctx := context.Background()
	rr := s.newRequest()
	first := s.uploadDiff(ctx, rr, readmeDiff)
	second := s.uploadDiff(ctx, rr, mainDiff)

	_, err := s.Store.DiffSet(first.ID)
	s.True(reviews.IsNotFound(err))
	d, err := s.Store.Draft(rr.ID)
	if s.NoError(err) {
		s.Equal(second.ID, d.DiffSetID)
	}

	// Discarding the draft discards the pending diff too
	s.NoError(s.Service.DiscardDraft(s.Owner, rr))
	_, err = s.Store.DiffSet(second.ID)
	s.True(reviews.IsNotFound(err))
}

func (s *Suite) TestUploadDiffFileChecks() {
	ctx := context.Background()
	rr := s.newRequest()
	up := workflow.DiffUpload{Name: "diff", Data: []byte(readmeDiff)}

	_, err := s.Service.UploadDiff(ctx, s.Owner, rr, up)
	s.Equal(reviews.ErrRepoFileNotFound{Path: "/README", Revision: "3"}, err)

	up.BaseDir = "/trunk"
	s.SCM.files["/trunk/README@3"] = true
	_, err = s.Service.UploadDiff(ctx, s.Owner, rr, up)
	s.NoError(err)

	// Tools that cannot check files accept anything
	up.BaseDir = "/elsewhere"
	s.SCM.notImplemented = true
	_, err = s.Service.UploadDiff(ctx, s.Owner, rr, up)
	s.NoError(err)
}

func (s *Suite) TestUploadDiffInvalid() {
	ctx := context.Background()
	rr := s.newRequest()

	_, err := s.Service.UploadDiff(ctx, s.Owner, rr, workflow.DiffUpload{Name: "empty"})
	s.assertInvalid(err, "path", "The diff file is empty")

	_, err = s.Service.UploadDiff(ctx, s.Reviewer, rr, workflow.DiffUpload{Data: []byte(readmeDiff)})
	s.Equal(reviews.ErrPermissionDenied, err)
	_, err = s.Service.UploadDiff(ctx, nil, rr, workflow.DiffUpload{Data: []byte(readmeDiff)})
	s.Equal(reviews.ErrNotLoggedIn, err)
}

func (s *Suite) TestFileDiffScoped() {
	ctx := context.Background()
	rr := s.newRequest()
	ds := s.uploadDiff(ctx, rr, readmeDiff)
	other := s.uploadDiff(ctx, s.newRequest(), mainDiff)
	files, err := s.Store.FileDiffs(other.ID)
	s.Require().NoError(err)
	_, err = s.Service.FileDiff(ds, files[0].ID)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindFileDiff, Key: files[0].ID}, err)
}

func (s *Suite) TestScreenshots() {
	ctx := context.Background()
	rr := s.publishedRequest("Pictures")

	ss, err := s.Service.UploadScreenshot(ctx, s.Owner, rr, workflow.ScreenshotUpload{
		Filename: "/home/owner/shot.png",
		Caption:  "Before",
		Data:     stringReader("png data"),
	})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(ss.Path, "uploaded/images/"))
	s.True(strings.HasSuffix(ss.Path, "/shot.png"))
	s.Equal("Before", ss.DraftCaption)

	// Only in the draft so far
	active, err := s.Service.Screenshots(rr)
	if s.NoError(err) {
		s.Empty(active)
	}
	pending, err := s.Service.DraftScreenshots(s.Owner, rr)
	if s.NoError(err) {
		s.Len(pending, 1)
	}
	_, err = s.Service.DraftScreenshots(s.Reviewer, rr)
	s.Equal(reviews.ErrPermissionDenied, err)

	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	published, err := s.Service.Screenshot(rr, ss.ID)
	if s.NoError(err) {
		s.Equal("Before", published.Caption)
		s.Equal("", published.DraftCaption)
	}

	// Captions stage on the draft
	_, err = s.Service.SetScreenshotCaption(s.Owner, rr, published, "After")
	s.Require().NoError(err)
	published, err = s.Service.Screenshot(rr, ss.ID)
	if s.NoError(err) {
		s.Equal("Before", published.Caption)
		s.Equal("After", published.DraftCaptionOrCaption())
	}
	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	published, err = s.Service.Screenshot(rr, ss.ID)
	if s.NoError(err) {
		s.Equal("After", published.Caption)
	}

	// Removal takes effect on publish
	s.Require().NoError(s.Service.RemoveDraftScreenshot(s.Owner, rr, published))
	_, err = s.Service.Screenshot(rr, ss.ID)
	s.NoError(err)
	err = s.Service.RemoveDraftScreenshot(s.Owner, rr, published)
	s.Equal(reviews.ErrNotFound{Kind: reviews.KindDraftScreenshot, Key: ss.ID}, err)
	rr, err = s.Service.PublishDraft(s.Owner, rr)
	s.Require().NoError(err)
	_, err = s.Service.Screenshot(rr, ss.ID)
	s.True(reviews.IsNotFound(err))

	// The image is still stored
	f, err := s.Service.OpenScreenshot(ctx, ss)
	if s.NoError(err) {
		data, err := ioutil.ReadAll(f)
		s.NoError(err)
		s.Equal("png data", string(data))
		s.NoError(f.Close())
	}
}

func (s *Suite) TestUploadScreenshotInvalid() {
	ctx := context.Background()
	rr := s.newRequest()
	_, err := s.Service.UploadScreenshot(ctx, s.Owner, rr, workflow.ScreenshotUpload{})
	s.assertInvalid(err, "path", "This field is required")
	_, err = s.Service.UploadScreenshot(ctx, s.Reviewer, rr, workflow.ScreenshotUpload{
		Filename: "x.png",
		Data:     stringReader("x"),
	})
	s.Equal(reviews.ErrPermissionDenied, err)
}
