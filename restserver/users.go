// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"sort"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

func userFields() []field {
	return fieldList(
		attrs("id", "username", "first_name", "last_name", "email"),
		[]field{
			{name: "fullname", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return obj.(*reviews.User).FullName(), nil
			}},
			{name: "url", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return "/users/" + obj.(*reviews.User).Username + "/", nil
			}},
		},
	)
}

func userTitle(obj reviews.Object) string {
	return obj.(*reviews.User).Username
}

// mergeUsers combines user lists, dropping duplicates and sorting by
// username.
func mergeUsers(lists ...[]*reviews.User) []*reviews.User {
	seen := make(map[string]bool)
	result := []*reviews.User{}
	for _, list := range lists {
		for _, u := range list {
			if !seen[u.Username] {
				seen[u.Username] = true
				result = append(result, u)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result
}

func (api *restAPI) usersNode() *node {
	return (&node{
		name:        "user",
		plural:      "users",
		uriName:     "users",
		key:         "username",
		kind:        reviews.KindUser,
		fields:      userFields(),
		listMethods: []string{"GET"},
		itemMethods: []string{"GET"},
		title:       userTitle,
		// q matches a username prefix, or with fullname=1 also a
		// first or last name prefix.
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			q := c.QueryParams.Get("q")
			users, err := api.Service.ListUsers(reviews.UserQuery{Prefix: q})
			if err != nil {
				return nil, 0, err
			}
			if q != "" && c.BoolParam("fullname", false) {
				byName, err := api.Service.ListUsers(reviews.UserQuery{FullName: q})
				if err != nil {
					return nil, 0, err
				}
				users = mergeUsers(users, byName)
			}
			return pageOf(objects(users), pg)
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			name, err := c.name(key)
			if err != nil {
				return nil, err
			}
			return api.Service.User(name)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"username", obj.(*reviews.User).Username}, nil
		},
	}).add(api.watchedNode())
}

// watchedItem is one entry of a watch list.
type watchedItem struct {
	workflow.Watched
}

func (w watchedItem) Kind() reviews.Kind {
	if w.Entry.Kind == reviews.WatchGroup {
		return reviews.KindWatchedGroup
	}
	return reviews.KindWatchedReviewRequest
}

func (api *restAPI) watchedNode() *node {
	watched := &node{
		name:        "watched",
		uriName:     "watched",
		singleton:   true,
		itemMethods: []string{"GET"},
	}
	watched.get = func(c *call, _ reviews.Object) (interface{}, error) {
		vars := []string{"username", c.user().Username}
		self, err := c.url(watched.id, vars...)
		if err != nil {
			return nil, err
		}
		links := restdata.Links{"self": {Method: "GET", Href: self}}
		if err := c.childLinks(watched, vars, links); err != nil {
			return nil, err
		}
		return document{"watched": map[string]interface{}{"links": links}}, nil
	}
	return watched.add(
		api.watchListNode(reviews.WatchGroup),
		api.watchListNode(reviews.WatchReviewRequest),
	)
}

// watchListNode serves one of a user's watch lists.  Items are the
// watch entries, each holding the watched object; fetching an item
// redirects to the object.
func (api *restAPI) watchListNode(kind reviews.WatchKind) *node {
	name, uriName, objKind := "watched_review_request", "review-requests", reviews.KindWatchedReviewRequest
	if kind == reviews.WatchGroup {
		name, uriName, objKind = "watched_review_group", "review-groups", reviews.KindWatchedGroup
	}
	return &node{
		name:        name,
		plural:      name + "s",
		uriName:     uriName,
		key:         "watched_obj_id",
		kind:        objKind,
		listMethods: []string{"GET", "POST"},
		itemMethods: []string{"GET", "DELETE"},
		fields: []field{
			{name: "id", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return obj.(watchedItem).Entry.ID, nil
			}},
			{name: name, value: func(c *call, obj reviews.Object) (interface{}, error) {
				return inline{obj.(watchedItem).Object}, nil
			}},
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.Watched(c.principal, c.user().Username, kind)
			if err != nil {
				return nil, 0, err
			}
			items := make([]reviews.Object, len(all))
			for i, w := range all {
				items[i] = watchedItem{w}
			}
			return pageOf(items, pg)
		},
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			objectID, _ := p.String("object_id")
			if objectID == "" {
				return nil, reviews.InvalidField("object_id", "This field is required")
			}
			w, err := api.Service.Star(c.principal, c.user().Username, kind, objectID)
			if err != nil {
				return nil, err
			}
			return created{watchedItem{*w}}, nil
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			username := c.user().Username
			w, err := api.Service.WatchedEntry(c.principal, username, kind, key)
			if reviews.IsNotFound(err) && c.req.Method == http.MethodDelete {
				// Deleting an entry that is already gone succeeds
				w = &workflow.Watched{Entry: reviews.WatchEntry{ID: key, Username: username, Kind: kind}}
			} else if err != nil {
				return nil, err
			}
			return watchedItem{*w}, nil
		},
		get: func(c *call, obj reviews.Object) (interface{}, error) {
			return redirect{status: http.StatusFound, to: obj.(watchedItem).Object}, nil
		},
		remove: func(c *call, obj reviews.Object) (interface{}, error) {
			return nil, api.Service.Unstar(c.principal, c.user().Username, kind, obj.(watchedItem).Entry.ID)
		},
		canDelete: func(c *call, obj reviews.Object) bool {
			return workflow.CanModifyUser(c.principal, obj.(watchedItem).Entry.Username)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			w := obj.(watchedItem)
			return []string{"username", w.Entry.Username, "watched_obj_id", w.Entry.ID}, nil
		},
	}
}
