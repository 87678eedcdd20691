// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

// commentIDs returns the ID of a comment and of the review it
// belongs to.
func commentIDs(obj reviews.Object) (id, reviewID int) {
	switch cm := obj.(type) {
	case *reviews.DiffComment:
		return cm.ID, cm.ReviewID
	case *reviews.ScreenshotComment:
		return cm.ID, cm.ReviewID
	}
	return 0, 0
}

// commentReview returns the review or reply holding a comment.
func (c *call) commentReview(obj reviews.Object) (*reviews.Review, error) {
	_, reviewID := commentIDs(obj)
	return c.reviewByID(reviewID)
}

// commentFields are derived from the review holding the comment.
func commentFields() []field {
	return []field{
		{name: "public", value: func(c *call, obj reviews.Object) (interface{}, error) {
			r, err := c.commentReview(obj)
			if err != nil {
				return nil, err
			}
			return r.Public, nil
		}},
		{name: "user", value: func(c *call, obj reviews.Object) (interface{}, error) {
			r, err := c.commentReview(obj)
			if err != nil {
				return nil, err
			}
			return c.userRef(r.User)
		}},
	}
}

func canModifyComment(c *call, obj reviews.Object) bool {
	r, err := c.commentReview(obj)
	return err == nil && workflow.CanModifyReview(c.principal, r)
}

// commentHref places a comment under its review, or under its reply
// and the reply's base review.
func commentHref(c *call, obj reviews.Object) ([]string, error) {
	r, err := c.commentReview(obj)
	if err != nil {
		return nil, err
	}
	id, _ := commentIDs(obj)
	vars := []string{"review_request_id", strconv.Itoa(r.ReviewRequestID)}
	if r.IsReply() {
		vars = append(vars, "review_id", strconv.Itoa(r.BaseReplyToID), "reply_id", strconv.Itoa(r.ID))
	} else {
		vars = append(vars, "review_id", strconv.Itoa(r.ID))
	}
	return append(vars, "comment_id", strconv.Itoa(id)), nil
}

// owner returns the review or reply in the path that comments belong
// to.
func owner(reply bool) func(c *call) *reviews.Review {
	if reply {
		return (*call).reply
	}
	return (*call).review
}

// commentNode fills in what diff and screenshot comment nodes share.
func commentNode(n *node) *node {
	n.key = "comment_id"
	n.keyPattern = "[0-9]+"
	n.listMethods = []string{"GET", "POST"}
	n.itemMethods = []string{"GET", "PUT", "DELETE"}
	n.canModify = canModifyComment
	n.canDelete = canModifyComment
	n.href = commentHref
	return n
}

func (api *restAPI) diffCommentsNode(reply bool) *node {
	review := owner(reply)
	kind := reviews.KindDiffComment
	if reply {
		kind = reviews.KindReplyDiffComment
	}
	fields := fieldList(
		attrs("id", "timestamp"),
		mutable("text"),
		[]field{
			{name: "filediff", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return api.Service.Store.FileDiff(obj.(*reviews.DiffComment).FileDiffID)
			}},
			{name: "interfilediff", value: func(c *call, obj reviews.Object) (interface{}, error) {
				id := obj.(*reviews.DiffComment).InterFileDiffID
				if id == 0 {
					return (*reviews.FileDiff)(nil), nil
				}
				return api.Service.Store.FileDiff(id)
			}},
		},
		commentFields(),
	)
	if reply {
		fields = fieldList(fields, attrs("first_line", "num_lines"), []field{
			{name: "reply_to", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return api.Service.Store.DiffComment(obj.(*reviews.DiffComment).ReplyToID)
			}},
		})
	} else {
		fields = fieldList(fields, mutable("first_line", "num_lines"))
	}
	return commentNode(&node{
		name:    "diff_comment",
		plural:  "diff_comments",
		uriName: "diff-comments",
		kind:    kind,
		fields:  fields,
		title: func(obj reviews.Object) string {
			return obj.(*reviews.DiffComment).Text
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.DiffComments(c.principal, review(c))
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			var in workflow.DiffCommentInput
			if err := p.Decode(&in); err != nil {
				return nil, err
			}
			cm, err := api.Service.CreateDiffComment(c.principal, c.reviewRequest(), review(c), in)
			if err != nil {
				return nil, err
			}
			return created{cm}, nil
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindDiffComment)
			if err != nil {
				return nil, err
			}
			return api.Service.DiffComment(c.principal, review(c), id)
		},
		update: func(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error) {
			var in workflow.DiffCommentInput
			if err := p.Decode(&in); err != nil {
				return nil, err
			}
			return api.Service.UpdateDiffComment(c.principal, review(c), obj.(*reviews.DiffComment), in)
		},
		remove: func(c *call, obj reviews.Object) (interface{}, error) {
			return nil, api.Service.DeleteDiffComment(c.principal, review(c), obj.(*reviews.DiffComment))
		},
	})
}

func (api *restAPI) screenshotCommentsNode(reply bool) *node {
	review := owner(reply)
	kind := reviews.KindScreenshotComment
	if reply {
		kind = reviews.KindReplyScreenshotComment
	}
	fields := fieldList(
		attrs("id", "timestamp"),
		mutable("text"),
		[]field{{name: "screenshot", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return api.Service.Store.Screenshot(obj.(*reviews.ScreenshotComment).ScreenshotID)
		}}},
		commentFields(),
	)
	if reply {
		fields = fieldList(fields, attrs("x", "y", "w", "h"), []field{
			{name: "reply_to", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return api.Service.Store.ScreenshotComment(obj.(*reviews.ScreenshotComment).ReplyToID)
			}},
		})
	} else {
		fields = fieldList(fields, mutable("x", "y", "w", "h"))
	}
	return commentNode(&node{
		name:    "screenshot_comment",
		plural:  "screenshot_comments",
		uriName: "screenshot-comments",
		kind:    kind,
		fields:  fields,
		title: func(obj reviews.Object) string {
			return obj.(*reviews.ScreenshotComment).Text
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.ScreenshotComments(c.principal, review(c))
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			var in workflow.ScreenshotCommentInput
			if err := p.Decode(&in); err != nil {
				return nil, err
			}
			cm, err := api.Service.CreateScreenshotComment(c.principal, c.reviewRequest(), review(c), in)
			if err != nil {
				return nil, err
			}
			return created{cm}, nil
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindScreenshotComment)
			if err != nil {
				return nil, err
			}
			return api.Service.ScreenshotComment(c.principal, review(c), id)
		},
		update: func(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error) {
			var in workflow.ScreenshotCommentInput
			if err := p.Decode(&in); err != nil {
				return nil, err
			}
			return api.Service.UpdateScreenshotComment(c.principal, review(c), obj.(*reviews.ScreenshotComment), in)
		},
		remove: func(c *call, obj reviews.Object) (interface{}, error) {
			return nil, api.Service.DeleteScreenshotComment(c.principal, review(c), obj.(*reviews.ScreenshotComment))
		},
	})
}
