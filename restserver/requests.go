// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/sirupsen/logrus"
)

// Lists taken from clients as comma-separated strings.
var draftLists = []string{"bugs_closed", "target_groups", "target_people"}

// targetFields are the reviewer fields shared by review requests and
// drafts.
func targetFields(mutable bool) []field {
	return []field{
		{name: "target_groups", mutable: mutable, value: func(c *call, obj reviews.Object) (interface{}, error) {
			switch o := obj.(type) {
			case *reviews.ReviewRequest:
				return c.groupRefs(o.TargetGroups)
			case *reviews.Draft:
				return c.groupRefs(o.TargetGroups)
			}
			return nil, nil
		}},
		{name: "target_people", mutable: mutable, value: func(c *call, obj reviews.Object) (interface{}, error) {
			switch o := obj.(type) {
			case *reviews.ReviewRequest:
				return c.userRefs(o.TargetPeople)
			case *reviews.Draft:
				return c.userRefs(o.TargetPeople)
			}
			return nil, nil
		}},
	}
}

func (api *restAPI) reviewRequestsNode() *node {
	return (&node{
		name:       "review_request",
		plural:     "review_requests",
		uriName:    "review-requests",
		key:        "review_request_id",
		keyPattern: "[0-9]+",
		kind:       reviews.KindReviewRequest,
		fields: fieldList(
			attrs("id", "time_added", "last_updated", "public", "summary",
				"description", "testing_done", "bugs_closed", "branch"),
			mutable("status"),
			[]field{
				{name: "submitter", value: func(c *call, obj reviews.Object) (interface{}, error) {
					return c.userRef(obj.(*reviews.ReviewRequest).Submitter)
				}},
				{name: "repository", value: func(c *call, obj reviews.Object) (interface{}, error) {
					rr := obj.(*reviews.ReviewRequest)
					if rr.RepositoryID == 0 {
						return (*reviews.Repository)(nil), nil
					}
					return api.Service.Store.Repository(rr.RepositoryID)
				}},
				{name: "changenum", value: func(c *call, obj reviews.Object) (interface{}, error) {
					if n := obj.(*reviews.ReviewRequest).ChangeNum; n != 0 {
						return n, nil
					}
					return nil, nil
				}},
			},
			targetFields(false),
		),
		listMethods: []string{"GET", "POST"},
		itemMethods: []string{"GET", "PUT", "DELETE"},
		title: func(obj reviews.Object) string {
			return obj.(*reviews.ReviewRequest).Summary
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			q, err := api.reviewRequestQuery(c)
			if err != nil {
				return nil, 0, err
			}
			total, err := api.Service.CountReviewRequests(c.principal, q)
			if err != nil {
				return nil, 0, err
			}
			q.Start, q.Limit = pg.start, pg.limit
			rrs, err := api.Service.ReviewRequests(c.principal, q)
			if err != nil {
				return nil, 0, err
			}
			return objects(rrs), total, nil
		},
		count: func(c *call) (int, error) {
			q, err := api.reviewRequestQuery(c)
			if err != nil {
				return 0, err
			}
			return api.Service.CountReviewRequests(c.principal, q)
		},
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			var nr workflow.NewReviewRequest
			if err := p.Decode(&nr); err != nil {
				return nil, err
			}
			rr, err := api.Service.CreateReviewRequest(c.ctx, c.principal, nr)
			if err != nil {
				return nil, err
			}
			return created{rr}, nil
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindReviewRequest)
			if err != nil {
				return nil, err
			}
			return api.Service.ReviewRequest(c.principal, id)
		},
		update: func(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error) {
			rr := obj.(*reviews.ReviewRequest)
			s, ok := p.String("status")
			if !ok {
				return rr, nil
			}
			status, err := reviews.ParseStatus(s)
			if err != nil || status == reviews.StatusAll {
				return nil, reviews.InvalidField("status", "This is not a valid status")
			}
			return api.Service.SetStatus(c.principal, rr, status)
		},
		remove: func(c *call, obj reviews.Object) (interface{}, error) {
			return nil, api.Service.DeleteReviewRequest(c.ctx, c.principal, obj.(*reviews.ReviewRequest))
		},
		canModify: func(c *call, obj reviews.Object) bool {
			rr := obj.(*reviews.ReviewRequest)
			return workflow.CanModifyReviewRequest(c.principal, rr) || workflow.CanChangeStatus(c.principal, rr)
		},
		canDelete: func(c *call, obj reviews.Object) bool {
			return workflow.CanDeleteReviewRequest(c.principal)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"review_request_id", strconv.Itoa(obj.(*reviews.ReviewRequest).ID)}, nil
		},
	}).add(
		api.draftNode(),
		api.lastUpdateNode(),
		api.diffsNode(),
		api.reviewsNode(),
		api.screenshotsNode(),
		api.pendingReviewNode("review_draft", "reviews/draft"),
	)
}

// reviewRequestQuery reads the list filters.  Parameters that could
// not be understood are logged and otherwise ignored.
func (api *restAPI) reviewRequestQuery(c *call) (*reviews.ReviewRequestQuery, error) {
	q, err := reviews.ParseReviewRequestQuery(c.QueryParams)
	if err != nil {
		return nil, err
	}
	if len(q.Ignored) > 0 {
		api.Logger.WithFields(logrus.Fields{
			"path":    c.req.URL.Path,
			"ignored": q.Ignored,
		}).Debug("ignoring unparsable query parameters")
	}
	return q, nil
}

// draftNode serves the draft of a review request.  Reading or
// discarding needs an existing draft; changing it creates one.
func (api *restAPI) draftNode() *node {
	return (&node{
		name:      "draft",
		uriName:   "draft",
		singleton: true,
		kind:      reviews.KindDraft,
		fields: fieldList(
			attrs("id", "last_updated"),
			mutable("summary", "description", "testing_done", "branch", "bugs_closed"),
			targetFields(true),
			[]field{{name: "changedescription", mutable: true, value: func(c *call, obj reviews.Object) (interface{}, error) {
				return obj.(*reviews.Draft).ChangeDescription, nil
			}}},
		),
		itemMethods: []string{"GET", "PUT", "POST", "DELETE"},
		lookup: func(c *call, _ string) (reviews.Object, error) {
			switch c.req.Method {
			case http.MethodPut, http.MethodPost:
				return api.Service.PrepareDraft(c.principal, c.reviewRequest())
			}
			return api.Service.Draft(c.principal, c.reviewRequest())
		},
		// POST and PUT both apply all of the fields or none.
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			out, err := api.updateDraft(c, p)
			if d, ok := out.(*reviews.Draft); ok {
				return created{d}, err
			}
			return out, err
		},
		update: func(c *call, _ reviews.Object, p *restdata.Payload) (interface{}, error) {
			return api.updateDraft(c, p)
		},
		remove: func(c *call, _ reviews.Object) (interface{}, error) {
			return nil, api.Service.DiscardDraft(c.principal, c.reviewRequest())
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"review_request_id", strconv.Itoa(obj.(*reviews.Draft).ReviewRequestID)}, nil
		},
	}).add(api.draftScreenshotsNode())
}

// updateDraft applies a request to the draft.  Publishing redirects
// to the review request.
func (api *restAPI) updateDraft(c *call, p *restdata.Payload) (interface{}, error) {
	p.JoinLists(draftLists...)
	var ch workflow.DraftChanges
	if err := p.Decode(&ch); err != nil {
		return nil, err
	}
	d, published, err := api.Service.UpdateDraft(c.principal, c.reviewRequest(), ch, workflow.DraftOptions{})
	if err != nil {
		return nil, err
	}
	if published != nil {
		return redirect{status: http.StatusSeeOther, to: published}, nil
	}
	return d, nil
}

func (api *restAPI) lastUpdateNode() *node {
	return &node{
		name:      "last_update",
		uriName:   "last-update",
		singleton: true,
		kind:      reviews.KindLastUpdate,
		fields: fieldList(
			attrs("timestamp", "summary", "type"),
			[]field{{name: "user", value: func(c *call, obj reviews.Object) (interface{}, error) {
				lu := obj.(*reviews.LastUpdate)
				if lu.User == "" {
					return (*reviews.User)(nil), nil
				}
				return c.userRef(lu.User)
			}}},
		),
		itemMethods: []string{"GET"},
		lookup: func(c *call, _ string) (reviews.Object, error) {
			return api.Service.LastUpdate(c.reviewRequest())
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"review_request_id", strconv.Itoa(c.reviewRequest().ID)}, nil
		},
	}
}
