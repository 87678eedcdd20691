// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

func (api *restAPI) groupsNode() *node {
	return (&node{
		name:    "group",
		plural:  "groups",
		uriName: "groups",
		key:     "group_name",
		kind:    reviews.KindGroup,
		fields: fieldList(
			attrs("id", "name", "display_name", "mailing_list", "invite_only", "visible"),
			[]field{{name: "url", value: func(c *call, obj reviews.Object) (interface{}, error) {
				return "/groups/" + obj.(*reviews.Group).Name + "/", nil
			}}},
		),
		listMethods: []string{"GET"},
		itemMethods: []string{"GET"},
		title: func(obj reviews.Object) string {
			return obj.(*reviews.Group).Name
		},
		// q matches a name prefix, or with displayname=1 also a
		// display name prefix.
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			groups, err := api.Service.Groups(c.principal, reviews.GroupQuery{
				Prefix:      c.QueryParams.Get("q"),
				DisplayName: c.BoolParam("displayname", false),
			})
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(groups), pg)
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			name, err := c.name(key)
			if err != nil {
				return nil, err
			}
			return api.Service.Group(c.principal, name)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{"group_name", obj.(*reviews.Group).Name}, nil
		},
	}).add(api.groupMembersNode())
}

// groupMembersNode lists the users in a group.
func (api *restAPI) groupMembersNode() *node {
	return &node{
		name:        "user",
		plural:      "users",
		uriName:     "users",
		key:         "username",
		kind:        reviews.KindUser,
		fields:      userFields(),
		listMethods: []string{"GET"},
		itemMethods: []string{"GET"},
		title:       userTitle,
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			members, err := api.Service.GroupMembers(c.group())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(members), pg)
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			name, err := c.name(key)
			if err != nil {
				return nil, err
			}
			if !c.group().HasMember(name) {
				return nil, reviews.ErrNotFound{Kind: reviews.KindUser, Key: name}
			}
			return api.Service.User(name)
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			return []string{
				"group_name", c.group().Name,
				"username", obj.(*reviews.User).Username,
			}, nil
		},
	}
}
