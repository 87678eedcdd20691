// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

func (s *Suite) TestListUsers() {
	users, err := s.Service.ListUsers(reviews.UserQuery{Prefix: "RE"})
	if s.NoError(err) && s.Len(users, 1) {
		s.Equal("reviewer", users[0].Username)
	}

	members, err := s.Service.GroupMembers(s.Group)
	if s.NoError(err) && s.Len(members, 1) {
		s.Equal("reviewer", members[0].Username)
	}
}

func (s *Suite) TestGroupsHideInviteOnly() {
	secret := &reviews.Group{Name: "secret", InviteOnly: true, Visible: true, Members: []string{"reviewer"}}
	s.Require().NoError(s.Store.CreateGroup(secret))

	groups, err := s.Service.Groups(s.Owner, reviews.GroupQuery{})
	if s.NoError(err) {
		s.Len(groups, 1)
	}
	groups, err = s.Service.Groups(s.Reviewer, reviews.GroupQuery{})
	if s.NoError(err) {
		s.Len(groups, 2)
	}
	_, err = s.Service.Group(s.Owner, "secret")
	s.Equal(reviews.ErrPermissionDenied, err)
}
