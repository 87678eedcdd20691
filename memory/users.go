// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"sort"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
)

func copyUser(u *reviews.User) *reviews.User {
	c := *u
	c.Permissions = cloneStrings(u.Permissions)
	return &c
}

func copyGroup(g *reviews.Group) *reviews.Group {
	c := *g
	c.Members = cloneStrings(g.Members)
	return &c
}

func copyRepository(r *reviews.Repository) *reviews.Repository {
	c := *r
	c.Users = cloneStrings(r.Users)
	return &c
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// User fetches a user by name.
func (s *Store) User(username string) (*reviews.User, error) {
	s.lock()
	defer s.unlock()
	u, present := s.users[username]
	if !present {
		return nil, notFound(reviews.KindUser, username)
	}
	return copyUser(u), nil
}

func matchUser(u *reviews.User, q reviews.UserQuery) bool {
	if q.Usernames != nil {
		found := false
		for _, name := range q.Usernames {
			if name == u.Username {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Prefix != "" && !hasPrefixFold(u.Username, q.Prefix) {
		return false
	}
	if q.FullName != "" &&
		!hasPrefixFold(u.FirstName, q.FullName) &&
		!hasPrefixFold(u.LastName, q.FullName) &&
		!hasPrefixFold(u.FullName(), q.FullName) {
		return false
	}
	return true
}

// Users returns the users matching a query, sorted by username.
func (s *Store) Users(q reviews.UserQuery) ([]*reviews.User, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.User
	for _, u := range s.users {
		if matchUser(u, q) {
			result = append(result, copyUser(u))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

// CreateUser stores a new user.  It returns reviews.ErrDuplicate if
// the username is taken.
func (s *Store) CreateUser(u *reviews.User) error {
	s.lock()
	defer s.unlock()
	if _, present := s.users[u.Username]; present {
		return reviews.ErrDuplicate
	}
	u.ID = s.nextID(reviews.KindUser)
	s.users[u.Username] = copyUser(u)
	return nil
}

// Group fetches a group by name.
func (s *Store) Group(name string) (*reviews.Group, error) {
	s.lock()
	defer s.unlock()
	for _, g := range s.groups {
		if g.Name == name {
			return copyGroup(g), nil
		}
	}
	return nil, notFound(reviews.KindGroup, name)
}

// GroupByID fetches a group by ID.
func (s *Store) GroupByID(id int) (*reviews.Group, error) {
	s.lock()
	defer s.unlock()
	g, present := s.groups[id]
	if !present {
		return nil, notFound(reviews.KindGroup, id)
	}
	return copyGroup(g), nil
}

func matchGroup(g *reviews.Group, q reviews.GroupQuery) bool {
	if q.Prefix != "" && !hasPrefixFold(g.Name, q.Prefix) &&
		!(q.DisplayName && hasPrefixFold(g.DisplayName, q.Prefix)) {
		return false
	}
	if q.NameOrDisplayName != "" &&
		!strings.EqualFold(g.Name, q.NameOrDisplayName) &&
		!strings.EqualFold(g.DisplayName, q.NameOrDisplayName) {
		return false
	}
	return true
}

// Groups returns the groups matching a query, sorted by name.
func (s *Store) Groups(q reviews.GroupQuery) ([]*reviews.Group, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.Group
	for _, g := range s.groups {
		if matchGroup(g, q) {
			result = append(result, copyGroup(g))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// CreateGroup stores a new group.  It returns reviews.ErrDuplicate if
// the name is taken.
func (s *Store) CreateGroup(g *reviews.Group) error {
	s.lock()
	defer s.unlock()
	for _, other := range s.groups {
		if other.Name == g.Name {
			return reviews.ErrDuplicate
		}
	}
	g.ID = s.nextID(reviews.KindGroup)
	s.groups[g.ID] = copyGroup(g)
	return nil
}

// groupMembers returns the members of a named group.  The caller must
// hold the global lock.
func (s *Store) groupMembers(name string) []string {
	for _, g := range s.groups {
		if g.Name == name {
			return g.Members
		}
	}
	return nil
}

// Repository fetches a repository by ID.
func (s *Store) Repository(id int) (*reviews.Repository, error) {
	s.lock()
	defer s.unlock()
	r, present := s.repositories[id]
	if !present {
		return nil, notFound(reviews.KindRepository, id)
	}
	return copyRepository(r), nil
}

// RepositoryByPath fetches a repository by its path or mirror path.
func (s *Store) RepositoryByPath(path string) (*reviews.Repository, error) {
	s.lock()
	defer s.unlock()
	for _, r := range s.sortedRepositories() {
		if r.Path == path || (r.MirrorPath != "" && r.MirrorPath == path) {
			return copyRepository(r), nil
		}
	}
	return nil, notFound(reviews.KindRepository, path)
}

func (s *Store) sortedRepositories() []*reviews.Repository {
	result := make([]*reviews.Repository, 0, len(s.repositories))
	for _, r := range s.repositories {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Repositories returns all repositories in ID order.
func (s *Store) Repositories() ([]*reviews.Repository, error) {
	s.lock()
	defer s.unlock()
	var result []*reviews.Repository
	for _, r := range s.sortedRepositories() {
		result = append(result, copyRepository(r))
	}
	return result, nil
}

// CreateRepository stores a new repository.
func (s *Store) CreateRepository(r *reviews.Repository) error {
	s.lock()
	defer s.unlock()
	r.ID = s.nextID(reviews.KindRepository)
	s.repositories[r.ID] = copyRepository(r)
	return nil
}
