// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"context"
	"errors"

	"github.com/diffeo/go-reviewapi/reviews"
)

// User fetches a user by name.
func (s *Service) User(name string) (*reviews.User, error) {
	return s.Store.User(name)
}

// ListUsers lists the users matching q.
func (s *Service) ListUsers(q reviews.UserQuery) ([]*reviews.User, error) {
	return s.Store.Users(q)
}

// Group fetches a group p may read.
func (s *Service) Group(p *reviews.User, name string) (*reviews.Group, error) {
	g, err := s.Store.Group(name)
	if err != nil {
		return nil, err
	}
	if !CanReadGroup(p, g) {
		return nil, denied(p)
	}
	return g, nil
}

// Groups lists the groups matching q that are listed publicly or
// that p belongs to.
func (s *Service) Groups(p *reviews.User, q reviews.GroupQuery) ([]*reviews.Group, error) {
	all, err := s.Store.Groups(q)
	if err != nil {
		return nil, err
	}
	result := []*reviews.Group{}
	for _, g := range all {
		member := p != nil && g.HasMember(p.Username)
		if (g.Visible || member) && CanReadGroup(p, g) {
			result = append(result, g)
		}
	}
	return result, nil
}

// GroupMembers lists the members of a group.
func (s *Service) GroupMembers(g *reviews.Group) ([]*reviews.User, error) {
	if len(g.Members) == 0 {
		return []*reviews.User{}, nil
	}
	return s.Store.Users(reviews.UserQuery{Usernames: g.Members})
}

// Repository fetches a repository p may read.
func (s *Service) Repository(p *reviews.User, id int) (*reviews.Repository, error) {
	repo, err := s.Store.Repository(id)
	if err != nil {
		return nil, err
	}
	if !CanReadRepository(p, repo) {
		return nil, denied(p)
	}
	return repo, nil
}

// Repositories lists the repositories p may read.
func (s *Service) Repositories(p *reviews.User) ([]*reviews.Repository, error) {
	all, err := s.Store.Repositories()
	if err != nil {
		return nil, err
	}
	result := []*reviews.Repository{}
	for _, repo := range all {
		if CanReadRepository(p, repo) {
			result = append(result, repo)
		}
	}
	return result, nil
}

// RepositoryInfo asks the repository tool about a repository.  A
// tool that cannot answer returns ErrNotImplemented; any other
// failure is an ErrUpstream.
func (s *Service) RepositoryInfo(ctx context.Context, repo *reviews.Repository) (map[string]interface{}, error) {
	if s.SCM == nil {
		return nil, reviews.ErrNotImplemented
	}
	info, err := s.SCM.Info(ctx, repo)
	if err != nil && !errors.Is(err, reviews.ErrNotImplemented) {
		return nil, reviews.ErrUpstream{Err: err}
	}
	return info, err
}
