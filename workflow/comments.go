// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import "github.com/diffeo/go-reviewapi/reviews"

const fieldRequired = "This field is required"

// DiffCommentInput holds the fields of a diff comment to create or
// change.  Comments on reviews take a file diff, an optional
// interdiff file, a line range and text.  Comments on replies take
// the comment being replied to and text, and copy everything else
// from that comment.
type DiffCommentInput struct {
	FileDiffID      *int    `mapstructure:"filediff_id"`
	InterFileDiffID *int    `mapstructure:"interfilediff_id"`
	FirstLine       *int    `mapstructure:"first_line"`
	NumLines        *int    `mapstructure:"num_lines"`
	Text            *string `mapstructure:"text"`
	ReplyToID       *int    `mapstructure:"reply_to_id"`
}

// ScreenshotCommentInput holds the fields of a screenshot comment to
// create or change, following the same rules as DiffCommentInput.
type ScreenshotCommentInput struct {
	ScreenshotID *int    `mapstructure:"screenshot_id"`
	X            *int    `mapstructure:"x"`
	Y            *int    `mapstructure:"y"`
	W            *int    `mapstructure:"w"`
	H            *int    `mapstructure:"h"`
	Text         *string `mapstructure:"text"`
	ReplyToID    *int    `mapstructure:"reply_to_id"`
}

// requireFields records a problem for each named field whose value
// is absent.
func requireFields(invalid *reviews.ErrInvalidInput, fields map[string]bool) {
	for name, present := range fields {
		if !present {
			invalid.Add(name, fieldRequired)
		}
	}
}

// modifyReview checks that p may add to or change r's comments.
func modifyReview(p *reviews.User, r *reviews.Review) error {
	if err := requireLogin(p); err != nil {
		return err
	}
	if !CanModifyReview(p, r) {
		return reviews.ErrPermissionDenied
	}
	return nil
}

// fileDiffIn returns true if a file diff is part of some diff of rr,
// returning the file diff's diffset as well.
func (s *Service) fileDiffIn(rr *reviews.ReviewRequest, id int) (*reviews.DiffSet, bool, error) {
	fd, err := s.Store.FileDiff(id)
	if reviews.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ds, err := s.Store.DiffSet(fd.DiffSetID)
	if reviews.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return ds, ds.ReviewRequestID == rr.ID, nil
}

// DiffComments lists the comments of a review or reply p may read.
func (s *Service) DiffComments(p *reviews.User, r *reviews.Review) ([]*reviews.DiffComment, error) {
	if !CanReadReview(p, r) {
		return nil, denied(p)
	}
	return s.Store.DiffComments(reviews.CommentQuery{ReviewID: r.ID})
}

// DiffComment fetches one comment of a review or reply.
func (s *Service) DiffComment(p *reviews.User, r *reviews.Review, id int) (*reviews.DiffComment, error) {
	if !CanReadReview(p, r) {
		return nil, denied(p)
	}
	c, err := s.Store.DiffComment(id)
	if err != nil {
		return nil, err
	}
	if c.ReviewID != r.ID {
		return nil, reviews.ErrNotFound{Kind: reviews.KindDiffComment, Key: id}
	}
	return c, nil
}

// CreateDiffComment adds a comment to an unpublished review or reply
// of rr.
func (s *Service) CreateDiffComment(p *reviews.User, rr *reviews.ReviewRequest, r *reviews.Review, in DiffCommentInput) (*reviews.DiffComment, error) {
	if err := modifyReview(p, r); err != nil {
		return nil, err
	}
	var (
		c   *reviews.DiffComment
		err error
	)
	if r.IsReply() {
		c, err = s.diffCommentReply(r, in)
	} else {
		c, err = s.newDiffComment(rr, r, in)
	}
	if err != nil {
		return nil, err
	}
	c.Timestamp = s.now()
	if err := s.Store.CreateDiffComment(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) newDiffComment(rr *reviews.ReviewRequest, r *reviews.Review, in DiffCommentInput) (*reviews.DiffComment, error) {
	var invalid reviews.ErrInvalidInput
	requireFields(&invalid, map[string]bool{
		"filediff_id": in.FileDiffID != nil,
		"first_line":  in.FirstLine != nil,
		"num_lines":   in.NumLines != nil,
		"text":        in.Text != nil,
	})
	if !invalid.Empty() {
		return nil, invalid
	}

	ds, ok, err := s.fileDiffIn(rr, *in.FileDiffID)
	if err != nil {
		return nil, err
	}
	if !ok {
		invalid.Add("filediff_id", "This is not a valid filediff ID")
	}
	interID := 0
	if ok && in.InterFileDiffID != nil && *in.InterFileDiffID != 0 {
		interID = *in.InterFileDiffID
		if interID == *in.FileDiffID {
			invalid.Add("interfilediff_id", "This cannot be the same as filediff_id")
		} else {
			interDS, interOK, err := s.fileDiffIn(rr, interID)
			if err != nil {
				return nil, err
			}
			if !interOK || interDS.ReviewRequestID != ds.ReviewRequestID {
				invalid.Add("interfilediff_id", "This is not a valid interfilediff ID")
			}
		}
	}
	if !invalid.Empty() {
		return nil, invalid
	}
	return &reviews.DiffComment{
		ReviewID:        r.ID,
		FileDiffID:      *in.FileDiffID,
		InterFileDiffID: interID,
		FirstLine:       *in.FirstLine,
		NumLines:        *in.NumLines,
		Text:            *in.Text,
	}, nil
}

func (s *Service) diffCommentReply(reply *reviews.Review, in DiffCommentInput) (*reviews.DiffComment, error) {
	var invalid reviews.ErrInvalidInput
	requireFields(&invalid, map[string]bool{
		"reply_to_id": in.ReplyToID != nil,
		"text":        in.Text != nil,
	})
	if !invalid.Empty() {
		return nil, invalid
	}
	parent, err := s.Store.DiffComment(*in.ReplyToID)
	if err != nil && !reviews.IsNotFound(err) {
		return nil, err
	}
	if err != nil || parent.ReviewID != reply.BaseReplyToID {
		return nil, reviews.InvalidField("reply_to_id", "This is not a valid comment ID")
	}
	return &reviews.DiffComment{
		ReviewID:        reply.ID,
		FileDiffID:      parent.FileDiffID,
		InterFileDiffID: parent.InterFileDiffID,
		FirstLine:       parent.FirstLine,
		NumLines:        parent.NumLines,
		Text:            *in.Text,
		ReplyToID:       parent.ID,
	}, nil
}

// UpdateDiffComment changes a comment of an unpublished review or
// reply.  Comments on reviews may change their text and line range;
// comments on replies may only change their text.
func (s *Service) UpdateDiffComment(p *reviews.User, r *reviews.Review, c *reviews.DiffComment, in DiffCommentInput) (*reviews.DiffComment, error) {
	if err := modifyReview(p, r); err != nil {
		return nil, err
	}
	updated := *c
	if in.Text != nil {
		updated.Text = *in.Text
	}
	if !r.IsReply() {
		if in.FirstLine != nil {
			updated.FirstLine = *in.FirstLine
		}
		if in.NumLines != nil {
			updated.NumLines = *in.NumLines
		}
	}
	if err := s.Store.SaveDiffComment(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDiffComment removes a comment of an unpublished review or
// reply.
func (s *Service) DeleteDiffComment(p *reviews.User, r *reviews.Review, c *reviews.DiffComment) error {
	if err := modifyReview(p, r); err != nil {
		return err
	}
	return s.Store.DeleteDiffComment(c.ID)
}

// ScreenshotComments lists the screenshot comments of a review or
// reply p may read.
func (s *Service) ScreenshotComments(p *reviews.User, r *reviews.Review) ([]*reviews.ScreenshotComment, error) {
	if !CanReadReview(p, r) {
		return nil, denied(p)
	}
	return s.Store.ScreenshotComments(reviews.CommentQuery{ReviewID: r.ID})
}

// ScreenshotComment fetches one screenshot comment of a review or
// reply.
func (s *Service) ScreenshotComment(p *reviews.User, r *reviews.Review, id int) (*reviews.ScreenshotComment, error) {
	if !CanReadReview(p, r) {
		return nil, denied(p)
	}
	c, err := s.Store.ScreenshotComment(id)
	if err != nil {
		return nil, err
	}
	if c.ReviewID != r.ID {
		return nil, reviews.ErrNotFound{Kind: reviews.KindScreenshotComment, Key: id}
	}
	return c, nil
}

// CreateScreenshotComment adds a screenshot comment to an unpublished
// review or reply of rr.
func (s *Service) CreateScreenshotComment(p *reviews.User, rr *reviews.ReviewRequest, r *reviews.Review, in ScreenshotCommentInput) (*reviews.ScreenshotComment, error) {
	if err := modifyReview(p, r); err != nil {
		return nil, err
	}
	var (
		c   *reviews.ScreenshotComment
		err error
	)
	if r.IsReply() {
		c, err = s.screenshotCommentReply(r, in)
	} else {
		c, err = s.newScreenshotComment(rr, r, in)
	}
	if err != nil {
		return nil, err
	}
	c.Timestamp = s.now()
	if err := s.Store.CreateScreenshotComment(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) newScreenshotComment(rr *reviews.ReviewRequest, r *reviews.Review, in ScreenshotCommentInput) (*reviews.ScreenshotComment, error) {
	var invalid reviews.ErrInvalidInput
	requireFields(&invalid, map[string]bool{
		"screenshot_id": in.ScreenshotID != nil,
		"x":             in.X != nil,
		"y":             in.Y != nil,
		"w":             in.W != nil,
		"h":             in.H != nil,
		"text":          in.Text != nil,
	})
	if !invalid.Empty() {
		return nil, invalid
	}
	ss, err := s.Store.Screenshot(*in.ScreenshotID)
	if err != nil && !reviews.IsNotFound(err) {
		return nil, err
	}
	if err != nil || ss.ReviewRequestID != rr.ID {
		return nil, reviews.InvalidField("screenshot_id", "This is not a valid screenshot ID")
	}
	return &reviews.ScreenshotComment{
		ReviewID:     r.ID,
		ScreenshotID: ss.ID,
		X:            *in.X,
		Y:            *in.Y,
		W:            *in.W,
		H:            *in.H,
		Text:         *in.Text,
	}, nil
}

func (s *Service) screenshotCommentReply(reply *reviews.Review, in ScreenshotCommentInput) (*reviews.ScreenshotComment, error) {
	var invalid reviews.ErrInvalidInput
	requireFields(&invalid, map[string]bool{
		"reply_to_id": in.ReplyToID != nil,
		"text":        in.Text != nil,
	})
	if !invalid.Empty() {
		return nil, invalid
	}
	parent, err := s.Store.ScreenshotComment(*in.ReplyToID)
	if err != nil && !reviews.IsNotFound(err) {
		return nil, err
	}
	if err != nil || parent.ReviewID != reply.BaseReplyToID {
		return nil, reviews.InvalidField("reply_to_id", "This is not a valid screenshot comment ID")
	}
	return &reviews.ScreenshotComment{
		ReviewID:     reply.ID,
		ScreenshotID: parent.ScreenshotID,
		X:            parent.X,
		Y:            parent.Y,
		W:            parent.W,
		H:            parent.H,
		Text:         *in.Text,
		ReplyToID:    parent.ID,
	}, nil
}

// UpdateScreenshotComment changes a screenshot comment of an
// unpublished review or reply.  Comments on reviews may change their
// text and region; comments on replies may only change their text.
func (s *Service) UpdateScreenshotComment(p *reviews.User, r *reviews.Review, c *reviews.ScreenshotComment, in ScreenshotCommentInput) (*reviews.ScreenshotComment, error) {
	if err := modifyReview(p, r); err != nil {
		return nil, err
	}
	updated := *c
	if in.Text != nil {
		updated.Text = *in.Text
	}
	if !r.IsReply() {
		for _, f := range []struct {
			in  *int
			out *int
		}{{in.X, &updated.X}, {in.Y, &updated.Y}, {in.W, &updated.W}, {in.H, &updated.H}} {
			if f.in != nil {
				*f.out = *f.in
			}
		}
	}
	if err := s.Store.SaveScreenshotComment(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteScreenshotComment removes a screenshot comment of an
// unpublished review or reply.
func (s *Service) DeleteScreenshotComment(p *reviews.User, r *reviews.Review, c *reviews.ScreenshotComment) error {
	if err := modifyReview(p, r); err != nil {
		return err
	}
	return s.Store.DeleteScreenshotComment(c.ID)
}

// ScreenshotCommentsOn lists the comments on a screenshot whose
// reviews p may read.
func (s *Service) ScreenshotCommentsOn(p *reviews.User, ss *reviews.Screenshot) ([]*reviews.ScreenshotComment, error) {
	all, err := s.Store.ScreenshotComments(reviews.CommentQuery{ScreenshotID: ss.ID})
	if err != nil {
		return nil, err
	}
	visible := make(map[int]bool)
	result := []*reviews.ScreenshotComment{}
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
		if ok {
			result = append(result, c)
		}
	}
	return result, nil
}
