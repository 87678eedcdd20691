// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache provides key-based caching in front of some other
// reviews.Store.  Most methods simply pass through to the underlying
// store, but methods that fetch a user, group, repository, or review
// request by key will return a cached copy if one is available.
//
// Users, groups, and repositories are never changed through the Store
// interface, so once cached they stay valid until evicted.  Review
// requests are dropped from the cache whenever this store saves or
// deletes them.
//
// # Caveats
//
// Writes that go to the underlying store directly, or from another
// process sharing a database, are not seen.  Queries that return
// lists always go to the underlying store and do not populate the
// cache.
package cache

import (
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
)

// DefaultSize is the number of objects a cache holds if New is given
// a non-positive size.
const DefaultSize = 1024

// Store is a caching reviews.Store.
type Store struct {
	reviews.Store
	lru *lru
}

// New creates a new caching store wrapping backend.
func New(backend reviews.Store, size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{Store: backend, lru: newLRU(size)}
}

func intKey(prefix string, id int) string {
	return prefix + strconv.Itoa(id)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// User fetches a user by name.
func (s *Store) User(username string) (*reviews.User, error) {
	item, err := s.lru.Get("user:"+username, func() (interface{}, error) {
		return s.Store.User(username)
	})
	if err != nil {
		return nil, err
	}
	u := *item.(*reviews.User)
	u.Permissions = cloneStrings(u.Permissions)
	return &u, nil
}

// Group fetches a group by name.
func (s *Store) Group(name string) (*reviews.Group, error) {
	item, err := s.lru.Get("group:"+name, func() (interface{}, error) {
		return s.Store.Group(name)
	})
	if err != nil {
		return nil, err
	}
	g := *item.(*reviews.Group)
	g.Members = cloneStrings(g.Members)
	return &g, nil
}

// GroupByID fetches a group by ID.
func (s *Store) GroupByID(id int) (*reviews.Group, error) {
	item, err := s.lru.Get(intKey("group#", id), func() (interface{}, error) {
		return s.Store.GroupByID(id)
	})
	if err != nil {
		return nil, err
	}
	g := *item.(*reviews.Group)
	g.Members = cloneStrings(g.Members)
	return &g, nil
}

// Repository fetches a repository by ID.
func (s *Store) Repository(id int) (*reviews.Repository, error) {
	item, err := s.lru.Get(intKey("repository#", id), func() (interface{}, error) {
		return s.Store.Repository(id)
	})
	if err != nil {
		return nil, err
	}
	r := *item.(*reviews.Repository)
	r.Users = cloneStrings(r.Users)
	return &r, nil
}

// ReviewRequest fetches a review request by ID.
func (s *Store) ReviewRequest(id int) (*reviews.ReviewRequest, error) {
	item, err := s.lru.Get(intKey("review-request#", id), func() (interface{}, error) {
		return s.Store.ReviewRequest(id)
	})
	if err != nil {
		return nil, err
	}
	rr := *item.(*reviews.ReviewRequest)
	rr.BugsClosed = cloneStrings(rr.BugsClosed)
	rr.TargetGroups = cloneStrings(rr.TargetGroups)
	rr.TargetPeople = cloneStrings(rr.TargetPeople)
	if rr.Changes != nil {
		rr.Changes = append([]reviews.ChangeDescription(nil), rr.Changes...)
	}
	return &rr, nil
}

// SaveReviewRequest saves a review request and forgets any cached
// copy.
func (s *Store) SaveReviewRequest(rr *reviews.ReviewRequest) error {
	s.lru.Remove(intKey("review-request#", rr.ID))
	return s.Store.SaveReviewRequest(rr)
}

// DeleteReviewRequest deletes a review request and forgets any cached
// copy.
func (s *Store) DeleteReviewRequest(id int) error {
	s.lru.Remove(intKey("review-request#", id))
	return s.Store.DeleteReviewRequest(id)
}
