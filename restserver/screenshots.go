// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"path"
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

// Image types a screenshot item can be fetched as.
var imageTypes = []string{"image/png", "image/jpeg", "image/gif"}

// screenshotOf unwraps either view of a screenshot.
func screenshotOf(obj reviews.Object) *reviews.Screenshot {
	switch o := obj.(type) {
	case *reviews.Screenshot:
		return o
	case reviews.DraftScreenshot:
		return o.Screenshot
	}
	return nil
}

// screenshotFields describes a screenshot.  The draft view shows the
// pending caption.
func screenshotFields(n *node) []field {
	return []field{
		{name: "id", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return screenshotOf(obj).ID, nil
		}},
		{name: "caption", mutable: true, value: func(c *call, obj reviews.Object) (interface{}, error) {
			if ds, ok := obj.(reviews.DraftScreenshot); ok {
				return ds.DraftCaptionOrCaption(), nil
			}
			return screenshotOf(obj).Caption, nil
		}},
		{name: "path", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return screenshotOf(obj).Path, nil
		}},
		{name: "url", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return c.href(n, obj)
		}},
		{name: "thumbnail_url", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return c.href(n, obj)
		}},
	}
}

// renderScreenshot streams the image.
func (api *restAPI) renderScreenshot(c *call, obj reviews.Object, mediaType string) (interface{}, error) {
	ss := screenshotOf(obj)
	r, err := api.Service.OpenScreenshot(c.ctx, ss)
	if err != nil {
		return nil, err
	}
	return &rawBody{contentType: mediaType, filename: path.Base(ss.Path), data: r}, nil
}

// uploadScreenshot adds the uploaded image to the draft.
func (api *restAPI) uploadScreenshot(c *call, p *restdata.Payload) (interface{}, error) {
	up := workflow.ScreenshotUpload{}
	up.Caption, _ = p.String("caption")
	if f := p.Files["path"]; f != nil {
		up.Filename = f.Filename
		up.Data = bytes.NewReader(f.Data)
	}
	ss, err := api.Service.UploadScreenshot(c.ctx, c.principal, c.reviewRequest(), up)
	if err != nil {
		return nil, err
	}
	return created{reviews.DraftScreenshot{Screenshot: ss}}, nil
}

func (api *restAPI) setCaption(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error) {
	caption, ok := p.String("caption")
	if !ok {
		return obj, nil
	}
	ss, err := api.Service.SetScreenshotCaption(c.principal, c.reviewRequest(), screenshotOf(obj), caption)
	if err != nil {
		return nil, err
	}
	if _, draft := obj.(reviews.DraftScreenshot); draft {
		return reviews.DraftScreenshot{Screenshot: ss}, nil
	}
	return ss, nil
}

func (api *restAPI) removeScreenshot(c *call, obj reviews.Object) (interface{}, error) {
	return nil, api.Service.RemoveDraftScreenshot(c.principal, c.reviewRequest(), screenshotOf(obj))
}

func canModifyScreenshots(c *call, _ reviews.Object) bool {
	return workflow.CanModifyReviewRequest(c.principal, c.reviewRequest())
}

func screenshotHref(c *call, obj reviews.Object) ([]string, error) {
	ss := screenshotOf(obj)
	return []string{
		"review_request_id", strconv.Itoa(ss.ReviewRequestID),
		"screenshot_id", strconv.Itoa(ss.ID),
	}, nil
}

func screenshotTitle(obj reviews.Object) string {
	return screenshotOf(obj).Caption
}

// screenshotsNode serves the published screenshots.  Changes made
// through it are staged in the draft.
func (api *restAPI) screenshotsNode() *node {
	n := &node{
		name:        "screenshot",
		plural:      "screenshots",
		uriName:     "screenshots",
		key:         "screenshot_id",
		keyPattern:  "[0-9]+",
		kind:        reviews.KindScreenshot,
		listMethods: []string{"GET", "POST"},
		itemMethods: []string{"GET", "PUT", "DELETE"},
		itemTypes:   imageTypes,
		title:       screenshotTitle,
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.Screenshots(c.reviewRequest())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		create: api.uploadScreenshot,
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindScreenshot)
			if err != nil {
				return nil, err
			}
			return api.Service.Screenshot(c.reviewRequest(), id)
		},
		update:    api.setCaption,
		remove:    api.removeScreenshot,
		render:    api.renderScreenshot,
		canModify: canModifyScreenshots,
		canDelete: canModifyScreenshots,
		href:      screenshotHref,
	}
	n.fields = screenshotFields(n)
	return n.add(&node{
		name:        "screenshot_comment",
		plural:      "screenshot_comments",
		uriName:     "screenshot-comments",
		listOnly:    true,
		listMethods: []string{"GET"},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			comments, err := api.Service.ScreenshotCommentsOn(c.principal, c.screenshot())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(comments), pg)
		},
	})
}

// draftScreenshotsNode serves the screenshots that will be shown
// once the draft is published.
func (api *restAPI) draftScreenshotsNode() *node {
	n := &node{
		name:        "draft_screenshot",
		plural:      "draft_screenshots",
		uriName:     "screenshots",
		key:         "screenshot_id",
		keyPattern:  "[0-9]+",
		kind:        reviews.KindDraftScreenshot,
		listMethods: []string{"GET", "POST"},
		itemMethods: []string{"GET", "PUT", "DELETE"},
		itemTypes:   imageTypes,
		title: func(obj reviews.Object) string {
			return screenshotOf(obj).DraftCaptionOrCaption()
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.DraftScreenshots(c.principal, c.reviewRequest())
			if err != nil {
				return nil, 0, err
			}
			items := make([]reviews.Object, len(all))
			for i, ss := range all {
				items[i] = reviews.DraftScreenshot{Screenshot: ss}
			}
			return pageOf(items, pg)
		},
		create: api.uploadScreenshot,
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindDraftScreenshot)
			if err != nil {
				return nil, err
			}
			ss, err := api.Service.DraftScreenshot(c.principal, c.reviewRequest(), id)
			if err != nil {
				return nil, err
			}
			return reviews.DraftScreenshot{Screenshot: ss}, nil
		},
		update:    api.setCaption,
		remove:    api.removeScreenshot,
		render:    api.renderScreenshot,
		canModify: canModifyScreenshots,
		canDelete: canModifyScreenshots,
		href:      screenshotHref,
	}
	n.fields = screenshotFields(n)
	return n
}
