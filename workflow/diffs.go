// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"context"
	"errors"
	"path"

	"github.com/diffeo/go-reviewapi/reviews"
)

// DiffUpload is an uploaded diff file.
type DiffUpload struct {
	// Name is the uploaded file's name.
	Name string
	Data []byte
	// BaseDir is the repository directory the diff's paths are
	// relative to.
	BaseDir string
}

// DiffSets lists the published diffs of rr in revision order.
func (s *Service) DiffSets(rr *reviews.ReviewRequest) ([]*reviews.DiffSet, error) {
	return s.Store.DiffSets(rr.ID)
}

// DiffSetByRevision finds a published diff of rr by its revision.
func (s *Service) DiffSetByRevision(rr *reviews.ReviewRequest, revision int) (*reviews.DiffSet, error) {
	all, err := s.Store.DiffSets(rr.ID)
	if err != nil {
		return nil, err
	}
	for _, ds := range all {
		if ds.Revision == revision {
			return ds, nil
		}
	}
	return nil, reviews.ErrNotFound{Kind: reviews.KindDiffSet, Key: revision}
}

// FileDiff fetches one file of a diff.
func (s *Service) FileDiff(ds *reviews.DiffSet, id int) (*reviews.FileDiff, error) {
	fd, err := s.Store.FileDiff(id)
	if err != nil {
		return nil, err
	}
	if fd.DiffSetID != ds.ID {
		return nil, reviews.ErrNotFound{Kind: reviews.KindFileDiff, Key: id}
	}
	return fd, nil
}

// UploadDiff parses a diff and attaches it to the draft of rr as its
// pending diff, replacing any diff uploaded to the draft earlier.
// Files the diff modifies must exist in the repository, if the
// repository tool can check.
func (s *Service) UploadDiff(ctx context.Context, p *reviews.User, rr *reviews.ReviewRequest, up DiffUpload) (*reviews.DiffSet, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReviewRequest(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}
	if s.Parser == nil {
		return nil, reviews.ErrNotImplemented
	}
	parsed, err := s.Parser.Parse(up.Data)
	if err != nil {
		return nil, reviews.InvalidField("path", err.Error())
	}
	if len(parsed) == 0 {
		return nil, reviews.InvalidField("path", "The diff file is empty")
	}

	repo, err := s.Store.Repository(rr.RepositoryID)
	if err != nil {
		return nil, err
	}
	files := make([]*reviews.FileDiff, len(parsed))
	checkFiles := s.SCM != nil
	for i, pf := range parsed {
		fd := &reviews.FileDiff{
			SourceFile:     pf.SourceFile,
			DestFile:       pf.DestFile,
			SourceRevision: pf.SourceRevision,
			DestDetail:     pf.DestDetail,
			Binary:         pf.Binary,
			Diff:           pf.Data,
		}
		files[i] = fd
		if !checkFiles || fd.IsNew() || fd.Binary {
			continue
		}
		filename := path.Join("/", up.BaseDir, fd.SourceFile)
		exists, err := s.SCM.FileExists(ctx, repo, filename, fd.SourceRevision)
		switch {
		case errors.Is(err, reviews.ErrNotImplemented):
			checkFiles = false
		case err != nil:
			return nil, reviews.ErrUpstream{Err: err}
		case !exists:
			return nil, reviews.ErrRepoFileNotFound{Path: filename, Revision: fd.SourceRevision}
		}
	}

	ds := &reviews.DiffSet{
		ReviewRequestID: rr.ID,
		Name:            up.Name,
		Timestamp:       s.now(),
		RepositoryID:    repo.ID,
		BaseDir:         up.BaseDir,
	}
	if err := s.Store.CreateDiffSet(ds, files); err != nil {
		return nil, err
	}

	d, err := s.createDraft(rr)
	if err != nil {
		return nil, err
	}
	discarded := d.DiffSetID
	d.DiffSetID = ds.ID
	d.LastUpdated = s.now()
	if err := s.Store.SaveDraft(d); err != nil {
		return nil, err
	}
	if discarded != 0 {
		if err := s.Store.DeleteDiffSet(discarded); err != nil && !reviews.IsNotFound(err) {
			return nil, err
		}
	}
	return ds, nil
}

// RenderFileDiff produces structured diff data for one file.
func (s *Service) RenderFileDiff(ds *reviews.DiffSet, fd *reviews.FileDiff, highlight bool) (*reviews.DiffData, error) {
	if s.Renderer == nil {
		return nil, reviews.ErrNotImplemented
	}
	return s.Renderer.Render(ds, fd, highlight)
}

// FileDiffCommentFilter narrows the comments listed on a file diff.
type FileDiffCommentFilter struct {
	// InterdiffRevision selects comments on an interdiff against
	// this revision.
	InterdiffRevision int
	// Line selects comments starting at this line.
	Line int
}

// FileDiffComments lists the comments on a file diff whose reviews p
// may read.
func (s *Service) FileDiffComments(p *reviews.User, fd *reviews.FileDiff, filter FileDiffCommentFilter) ([]*reviews.DiffComment, error) {
	all, err := s.Store.DiffComments(reviews.CommentQuery{
		FileDiffID: fd.ID,
		Line:       filter.Line,
	})
	if err != nil {
		return nil, err
	}
	visible := make(map[int]bool)
	result := []*reviews.DiffComment{}
	for _, c := range all {
		ok, seen := visible[c.ReviewID]
		if !seen {
			r, err := s.Store.Review(c.ReviewID)
			if err != nil {
				return nil, err
			}
			ok = CanReadReview(p, r)
			visible[c.ReviewID] = ok
		}
		if !ok {
			continue
		}
		if filter.InterdiffRevision != 0 {
			if c.InterFileDiffID == 0 {
				continue
			}
			inter, err := s.Store.FileDiff(c.InterFileDiffID)
			if err != nil {
				return nil, err
			}
			ds, err := s.Store.DiffSet(inter.DiffSetID)
			if err != nil {
				return nil, err
			}
			if ds.Revision != filter.InterdiffRevision {
				continue
			}
		}
		result = append(result, c)
	}
	return result, nil
}
