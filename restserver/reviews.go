// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

// reviewFields are shared by reviews and replies.
func reviewFields() []field {
	return fieldList(
		attrs("id", "timestamp"),
		mutable("public", "body_top", "body_bottom"),
		[]field{{name: "user", value: func(c *call, obj reviews.Object) (interface{}, error) {
			return c.userRef(obj.(*reviews.Review).User)
		}}},
	)
}

func canModifyReview(c *call, obj reviews.Object) bool {
	return workflow.CanModifyReview(c.principal, obj.(*reviews.Review))
}

// reviewNode builds the reviews or the replies node.  base returns
// the review being replied to, or nil for top-level reviews.
func (api *restAPI) reviewNode(n *node, base func(c *call) *reviews.Review) *node {
	n.keyPattern = "[0-9]+"
	n.listMethods = []string{"GET", "POST"}
	n.itemMethods = []string{"GET", "PUT", "DELETE"}
	n.canModify = canModifyReview
	n.canDelete = canModifyReview
	n.lookup = func(c *call, key string) (reviews.Object, error) {
		id, err := parseID(key, n.kind)
		if err != nil {
			return nil, err
		}
		return api.Service.Review(c.principal, c.reviewRequest(), base(c), id)
	}
	// Posting when the user already has an unpublished review
	// changes that one instead.
	n.create = func(c *call, p *restdata.Payload) (interface{}, error) {
		var ch workflow.ReviewChanges
		if err := p.Decode(&ch); err != nil {
			return nil, err
		}
		r, isNew, err := api.Service.GetOrCreateReview(c.principal, c.reviewRequest(), base(c), ch)
		if err != nil {
			return nil, err
		}
		if isNew {
			return created{r}, nil
		}
		return redirect{status: http.StatusSeeOther, to: r, withBody: true}, nil
	}
	n.update = func(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error) {
		var ch workflow.ReviewChanges
		if err := p.Decode(&ch); err != nil {
			return nil, err
		}
		return api.Service.UpdateReview(c.principal, obj.(*reviews.Review), ch)
	}
	n.remove = func(c *call, obj reviews.Object) (interface{}, error) {
		return nil, api.Service.DeleteReview(c.principal, obj.(*reviews.Review))
	}
	return n
}

func (api *restAPI) reviewsNode() *node {
	n := api.reviewNode(&node{
		name:    "review",
		plural:  "reviews",
		uriName: "reviews",
		key:     "review_id",
		kind:    reviews.KindReview,
		fields:  fieldList(reviewFields(), mutable("ship_it")),
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.Reviews(c.reviewRequest())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			r := obj.(*reviews.Review)
			return []string{
				"review_request_id", strconv.Itoa(r.ReviewRequestID),
				"review_id", strconv.Itoa(r.ID),
			}, nil
		},
	}, func(c *call) *reviews.Review { return nil })
	return n.add(
		api.diffCommentsNode(false),
		api.screenshotCommentsNode(false),
		api.repliesNode(),
		api.pendingReviewNode("reply_draft", "replies/draft"),
	)
}

func (api *restAPI) repliesNode() *node {
	n := api.reviewNode(&node{
		name:    "reply",
		plural:  "replies",
		uriName: "replies",
		key:     "reply_id",
		kind:    reviews.KindReply,
		fields:  reviewFields(),
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.Replies(c.review())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			r := obj.(*reviews.Review)
			return []string{
				"review_request_id", strconv.Itoa(r.ReviewRequestID),
				"review_id", strconv.Itoa(r.BaseReplyToID),
				"reply_id", strconv.Itoa(r.ID),
			}, nil
		},
	}, (*call).review)
	return n.add(
		api.diffCommentsNode(true),
		api.screenshotCommentsNode(true),
	)
}

// pendingReviewNode redirects to the principal's unpublished review,
// or reply to the review in the path.
func (api *restAPI) pendingReviewNode(name, uriName string) *node {
	return &node{
		name:        name,
		uriName:     uriName,
		singleton:   true,
		hidden:      true,
		itemMethods: []string{"GET"},
		get: func(c *call, _ reviews.Object) (interface{}, error) {
			r, err := api.Service.PendingReview(c.principal, c.reviewRequest(), c.review())
			if err != nil {
				return nil, err
			}
			return redirect{status: http.StatusMovedPermanently, to: r}, nil
		},
	}
}
