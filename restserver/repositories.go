// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
)

func (api *restAPI) repositoriesNode() *node {
	return (&node{
		name:        "repository",
		plural:      "repositories",
		uriName:     "repositories",
		key:         "repository_id",
		keyPattern:  "[0-9]+",
		kind:        reviews.KindRepository,
		fields:      attrs("id", "name", "path", "tool"),
		listMethods: []string{"GET"},
		itemMethods: []string{"GET"},
		title: func(obj reviews.Object) string {
			return obj.(*reviews.Repository).Name
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			repos, err := api.Service.Repositories(c.principal)
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(repos), pg)
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindRepository)
			if err != nil {
				return nil, err
			}
			return api.Service.Repository(c.principal, id)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"repository_id", strconv.Itoa(obj.(*reviews.Repository).ID)}, nil
		},
	}).add(api.repositoryInfoNode())
}

// repositoryInfoNode asks the repository's tool about it.
func (api *restAPI) repositoryInfoNode() *node {
	return &node{
		name:        "repository_info",
		uriName:     "info",
		singleton:   true,
		itemMethods: []string{"GET"},
		get: func(c *call, _ reviews.Object) (interface{}, error) {
			info, err := api.Service.RepositoryInfo(c.ctx, c.repository())
			if errors.Is(err, reviews.ErrNotImplemented) {
				return nil, err
			}
			if err != nil {
				return nil, restdata.ErrRepoInfo{Err: err}
			}
			return document{"info": info}, nil
		},
	}
}
