// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"context"
	"io"
	"path"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/satori/go.uuid"
)

// ScreenshotUpload is an uploaded screenshot image.
type ScreenshotUpload struct {
	Filename string
	Caption  string
	Data     io.Reader
}

// Screenshots lists the published screenshots of rr.
func (s *Service) Screenshots(rr *reviews.ReviewRequest) ([]*reviews.Screenshot, error) {
	all, err := s.Store.Screenshots(rr.ID)
	if err != nil {
		return nil, err
	}
	result := []*reviews.Screenshot{}
	for _, ss := range all {
		if ss.Active {
			result = append(result, ss)
		}
	}
	return result, nil
}

// Screenshot fetches a published screenshot of rr.
func (s *Service) Screenshot(rr *reviews.ReviewRequest, id int) (*reviews.Screenshot, error) {
	ss, err := s.Store.Screenshot(id)
	if err != nil {
		return nil, err
	}
	if ss.ReviewRequestID != rr.ID || !ss.Active {
		return nil, reviews.ErrNotFound{Kind: reviews.KindScreenshot, Key: id}
	}
	return ss, nil
}

// DraftScreenshots lists the screenshots that will be shown once the
// draft of rr is published.  If there is no draft the list is empty.
func (s *Service) DraftScreenshots(p *reviews.User, rr *reviews.ReviewRequest) ([]*reviews.Screenshot, error) {
	d, err := s.Draft(p, rr)
	if reviews.IsNotFound(err) {
		return []*reviews.Screenshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	all, err := s.Store.Screenshots(rr.ID)
	if err != nil {
		return nil, err
	}
	result := []*reviews.Screenshot{}
	for _, ss := range all {
		if d.HasScreenshot(ss.ID) {
			result = append(result, ss)
		}
	}
	return result, nil
}

// DraftScreenshot fetches one screenshot in the draft of rr.
func (s *Service) DraftScreenshot(p *reviews.User, rr *reviews.ReviewRequest, id int) (*reviews.Screenshot, error) {
	d, err := s.Draft(p, rr)
	if err != nil {
		return nil, err
	}
	if !d.HasScreenshot(id) {
		return nil, reviews.ErrNotFound{Kind: reviews.KindDraftScreenshot, Key: id}
	}
	return s.Store.Screenshot(id)
}

// UploadScreenshot stores an image and adds it to the draft of rr.
func (s *Service) UploadScreenshot(ctx context.Context, p *reviews.User, rr *reviews.ReviewRequest, up ScreenshotUpload) (*reviews.Screenshot, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReviewRequest(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}
	if up.Data == nil || up.Filename == "" {
		return nil, reviews.InvalidField("path", fieldRequired)
	}
	if s.Files == nil {
		return nil, reviews.ErrNotImplemented
	}

	key := path.Join("uploaded/images", uuid.NewV4().String(), path.Base(up.Filename))
	if err := s.Files.Save(ctx, key, up.Data); err != nil {
		return nil, reviews.ErrUpstream{Err: err}
	}
	ss := &reviews.Screenshot{
		ReviewRequestID: rr.ID,
		DraftCaption:    up.Caption,
		Path:            key,
	}
	if err := s.Store.CreateScreenshot(ss); err != nil {
		return nil, err
	}

	d, err := s.createDraft(rr)
	if err != nil {
		return nil, err
	}
	d.ScreenshotIDs = append(d.ScreenshotIDs, ss.ID)
	d.LastUpdated = s.now()
	if err := s.Store.SaveDraft(d); err != nil {
		return nil, err
	}
	return ss, nil
}

// SetScreenshotCaption stages a new caption for a screenshot of rr,
// to be applied when the draft is published.
func (s *Service) SetScreenshotCaption(p *reviews.User, rr *reviews.ReviewRequest, ss *reviews.Screenshot, caption string) (*reviews.Screenshot, error) {
	if _, err := s.PrepareDraft(p, rr); err != nil {
		return nil, err
	}
	updated := *ss
	updated.DraftCaption = caption
	if err := s.Store.SaveScreenshot(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveDraftScreenshot takes a screenshot out of the draft of rr.
// Once the draft is published the screenshot is no longer shown.
func (s *Service) RemoveDraftScreenshot(p *reviews.User, rr *reviews.ReviewRequest, ss *reviews.Screenshot) error {
	d, err := s.PrepareDraft(p, rr)
	if err != nil {
		return err
	}
	if !d.HasScreenshot(ss.ID) {
		return reviews.ErrNotFound{Kind: reviews.KindDraftScreenshot, Key: ss.ID}
	}
	var kept []int
	for _, id := range d.ScreenshotIDs {
		if id != ss.ID {
			kept = append(kept, id)
		}
	}
	d.ScreenshotIDs = kept
	d.LastUpdated = s.now()
	return s.Store.SaveDraft(d)
}

// OpenScreenshot returns the image data of a screenshot.
func (s *Service) OpenScreenshot(ctx context.Context, ss *reviews.Screenshot) (io.ReadCloser, error) {
	if s.Files == nil {
		return nil, reviews.ErrNotImplemented
	}
	return s.Files.Open(ctx, ss.Path)
}
