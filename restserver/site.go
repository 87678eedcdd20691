// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
)

func (api *restAPI) rootNode() *node {
	return &node{
		name:        "root",
		singleton:   true,
		itemMethods: []string{"GET"},
		get: func(c *call, _ reviews.Object) (interface{}, error) {
			self, err := c.url(api.root.id)
			if err != nil {
				return nil, err
			}
			links := restdata.Links{"self": {Method: "GET", Href: self}}
			if err := c.childLinks(api.root, nil, links); err != nil {
				return nil, err
			}
			templates, err := api.templates(c)
			if err != nil {
				return nil, err
			}
			return document{"links": links, "uri_templates": templates}, nil
		},
	}
}

func (api *restAPI) infoNode() *node {
	return &node{
		name:        "info",
		uriName:     "info",
		singleton:   true,
		itemMethods: []string{"GET"},
		get: func(c *call, _ reviews.Object) (interface{}, error) {
			admins := make([]interface{}, len(api.Site.Administrators))
			for i, a := range api.Site.Administrators {
				admins[i] = map[string]interface{}{"name": a.Name, "email": a.Email}
			}
			siteURL := api.Site.URL
			if siteURL == "" {
				siteURL = c.base() + "/"
			}
			return document{"info": map[string]interface{}{
				"product": map[string]interface{}{
					"name":            api.Site.Name,
					"version":         Version,
					"package_version": Version,
					"is_release":      true,
				},
				"site": map[string]interface{}{
					"url":            siteURL,
					"administrators": admins,
				},
			}}, nil
		},
	}
}

func (api *restAPI) sessionNode() *node {
	return &node{
		name:        "session",
		uriName:     "session",
		singleton:   true,
		itemMethods: []string{"GET"},
		get: func(c *call, _ reviews.Object) (interface{}, error) {
			self, err := c.url("session")
			if err != nil {
				return nil, err
			}
			links := restdata.Links{"self": {Method: "GET", Href: self}}
			if c.principal != nil {
				links["user"], err = c.link(c.principal)
				if err != nil {
					return nil, err
				}
			}
			return document{"session": map[string]interface{}{
				"authenticated": c.principal != nil,
				"links":         links,
			}}, nil
		},
	}
}
