// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviewstest

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

// TestUsers checks user creation and lookup.
func (s *Suite) TestUsers() {
	alice := s.makeUser("alice")
	s.NotZero(alice.ID)

	got, err := s.Store.User(alice.Username)
	if s.NoError(err) {
		s.Equal(alice.ID, got.ID)
		s.Equal("alice", got.FirstName)
		s.Equal("alice Tester", got.FullName())
	}

	err = s.Store.CreateUser(&reviews.User{Username: alice.Username})
	s.Equal(reviews.ErrDuplicate, err)

	_, err = s.Store.User(s.name("nobody"))
	s.assertNotFound(err)
}

// TestUserQueries checks the username and full name filters.
func (s *Suite) TestUserQueries() {
	alice := s.makeUser("alice")
	bob := s.makeUser("bob")

	users, err := s.Store.Users(reviews.UserQuery{Prefix: s.name("AL")})
	if s.NoError(err) && s.Len(users, 1) {
		s.Equal(alice.Username, users[0].Username)
	}

	users, err = s.Store.Users(reviews.UserQuery{
		Usernames: []string{alice.Username, bob.Username},
	})
	if s.NoError(err) && s.Len(users, 2) {
		s.Equal(alice.Username, users[0].Username)
		s.Equal(bob.Username, users[1].Username)
	}

	users, err = s.Store.Users(reviews.UserQuery{
		Usernames: []string{alice.Username, bob.Username},
		FullName:  "BO",
	})
	if s.NoError(err) && s.Len(users, 1) {
		s.Equal(bob.Username, users[0].Username)
	}

	users, err = s.Store.Users(reviews.UserQuery{
		Usernames: []string{alice.Username, bob.Username},
		FullName:  "tester",
	})
	if s.NoError(err) {
		s.Len(users, 2)
	}

	users, err = s.Store.Users(reviews.UserQuery{Usernames: []string{}})
	if s.NoError(err) {
		s.Empty(users)
	}
}

// TestGroups checks group creation and queries.
func (s *Suite) TestGroups() {
	g := &reviews.Group{
		Name:        s.name("devs"),
		DisplayName: s.name("Developers"),
		Visible:     true,
		Members:     []string{"a", "b"},
	}
	if !s.NoError(s.Store.CreateGroup(g)) {
		return
	}
	s.NotZero(g.ID)
	s.Equal(reviews.ErrDuplicate, s.Store.CreateGroup(&reviews.Group{Name: g.Name}))

	got, err := s.Store.Group(g.Name)
	if s.NoError(err) {
		s.Equal(g.ID, got.ID)
		s.Equal([]string{"a", "b"}, got.Members)
	}
	got, err = s.Store.GroupByID(g.ID)
	if s.NoError(err) {
		s.Equal(g.Name, got.Name)
	}

	groups, err := s.Store.Groups(reviews.GroupQuery{NameOrDisplayName: s.name("DEVELOPERS")})
	if s.NoError(err) && s.Len(groups, 1) {
		s.Equal(g.ID, groups[0].ID)
	}
	groups, err = s.Store.Groups(reviews.GroupQuery{Prefix: s.name("Dev")})
	if s.NoError(err) {
		s.Len(groups, 1)
	}
	groups, err = s.Store.Groups(reviews.GroupQuery{Prefix: s.name("Developers")})
	if s.NoError(err) {
		s.Empty(groups)
	}
	groups, err = s.Store.Groups(reviews.GroupQuery{
		Prefix:      s.name("Developers"),
		DisplayName: true,
	})
	if s.NoError(err) {
		s.Len(groups, 1)
	}

	_, err = s.Store.Group(s.name("nobody"))
	s.assertNotFound(err)
}

// TestRepositories checks repository lookup by ID and path.
func (s *Suite) TestRepositories() {
	repo := s.makeRepository()
	s.NotZero(repo.ID)

	got, err := s.Store.Repository(repo.ID)
	if s.NoError(err) {
		s.Equal(repo.Name, got.Name)
		s.True(got.Public)
	}
	got, err = s.Store.RepositoryByPath(repo.Path)
	if s.NoError(err) {
		s.Equal(repo.ID, got.ID)
	}
	got, err = s.Store.RepositoryByPath(repo.MirrorPath)
	if s.NoError(err) {
		s.Equal(repo.ID, got.ID)
	}
	_, err = s.Store.RepositoryByPath("/nowhere/" + s.name("x"))
	s.assertNotFound(err)

	repos, err := s.Store.Repositories()
	if s.NoError(err) {
		found := false
		for _, r := range repos {
			if r.ID == repo.ID {
				found = true
			}
		}
		s.True(found)
	}
}
