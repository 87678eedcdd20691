// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"fmt"
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/satori/go.uuid"
)

// watchNamespace scopes the name-based UUIDs of watch entries.
var watchNamespace = uuid.NewV5(uuid.NamespaceURL, "urn:reviewapi:watched")

// WatchEntryID returns the identifier of the watch entry recording
// that username watches an object.  It depends only on its inputs,
// so the same star always has the same identifier, and it is never
// the watched object's own identifier.
func WatchEntryID(username string, kind reviews.WatchKind, objectID int) string {
	name := fmt.Sprintf("%s/%s/%d", username, kind, objectID)
	return uuid.NewV5(watchNamespace, name).String()
}

// Watched pairs a watch entry with the object it watches.
type Watched struct {
	Entry  reviews.WatchEntry
	Object reviews.Object
}

// watchTarget resolves the object a user asks to watch, applying
// p's read permission.  Groups are named by name or numeric ID and
// review requests by ID.
func (s *Service) watchTarget(p *reviews.User, kind reviews.WatchKind, key string) (reviews.Object, int, error) {
	switch kind {
	case reviews.WatchGroup:
		g, err := s.Store.Group(key)
		if reviews.IsNotFound(err) {
			if id, convErr := strconv.Atoi(key); convErr == nil {
				return s.watchTargetByID(p, kind, id)
			}
		}
		if err != nil {
			return nil, 0, err
		}
		if !CanReadGroup(p, g) {
			return nil, 0, denied(p)
		}
		return g, g.ID, nil
	case reviews.WatchReviewRequest:
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, 0, reviews.ErrNotFound{Kind: reviews.KindReviewRequest, Key: key}
		}
		return s.watchTargetByID(p, kind, id)
	}
	return nil, 0, fmt.Errorf("unknown watch kind %q", kind)
}

// watchTargetByID resolves the object of a stored watch entry.
func (s *Service) watchTargetByID(p *reviews.User, kind reviews.WatchKind, id int) (reviews.Object, int, error) {
	switch kind {
	case reviews.WatchGroup:
		g, err := s.Store.GroupByID(id)
		if err != nil {
			return nil, 0, err
		}
		if !CanReadGroup(p, g) {
			return nil, 0, denied(p)
		}
		return g, g.ID, nil
	case reviews.WatchReviewRequest:
		rr, err := s.ReviewRequest(p, id)
		if err != nil {
			return nil, 0, err
		}
		return rr, rr.ID, nil
	}
	return nil, 0, fmt.Errorf("unknown watch kind %q", kind)
}

// checkWatcher checks that username exists and that p may change the
// user's watch lists.
func (s *Service) checkWatcher(p *reviews.User, username string) error {
	if err := requireLogin(p); err != nil {
		return err
	}
	if _, err := s.Store.User(username); err != nil {
		return err
	}
	if !CanModifyUser(p, username) {
		return reviews.ErrPermissionDenied
	}
	return nil
}

// Star adds an object to a user's watch list.  Starring an object
// that is already starred succeeds and changes nothing.
func (s *Service) Star(p *reviews.User, username string, kind reviews.WatchKind, key string) (*Watched, error) {
	target, objectID, err := s.watchTarget(p, kind, key)
	if err != nil {
		return nil, err
	}
	if err := s.checkWatcher(p, username); err != nil {
		return nil, err
	}
	entry := reviews.WatchEntry{
		ID:       WatchEntryID(username, kind, objectID),
		Username: username,
		Kind:     kind,
		ObjectID: objectID,
	}
	if err := s.Store.AddWatch(entry); err != nil {
		return nil, err
	}
	return &Watched{Entry: entry, Object: target}, nil
}

// Unstar removes an entry, named by its identifier, from a user's
// watch list.  Removing an entry that does not exist succeeds.
func (s *Service) Unstar(p *reviews.User, username string, kind reviews.WatchKind, entryID string) error {
	if err := s.checkWatcher(p, username); err != nil {
		return err
	}
	entries, err := s.Store.Watches(username, kind)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == entryID {
			return s.Store.RemoveWatch(username, kind, e.ObjectID)
		}
	}
	return nil
}

// Watched lists the objects of one kind a user watches, skipping any
// that p cannot read or that no longer exist.
func (s *Service) Watched(p *reviews.User, username string, kind reviews.WatchKind) ([]Watched, error) {
	entries, err := s.Store.Watches(username, kind)
	if err != nil {
		return nil, err
	}
	result := []Watched{}
	for _, e := range entries {
		target, _, err := s.watchTargetByID(p, kind, e.ObjectID)
		if err != nil {
			if reviews.IsNotFound(err) || err == reviews.ErrPermissionDenied || err == reviews.ErrNotLoggedIn {
				continue
			}
			return nil, err
		}
		result = append(result, Watched{Entry: e, Object: target})
	}
	return result, nil
}

// WatchedEntry fetches one entry of a user's watch list by its
// identifier.
func (s *Service) WatchedEntry(p *reviews.User, username string, kind reviews.WatchKind, entryID string) (*Watched, error) {
	all, err := s.Watched(p, username, kind)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Entry.ID == entryID {
			return &all[i], nil
		}
	}
	objKind := reviews.KindWatchedReviewRequest
	if kind == reviews.WatchGroup {
		objKind = reviews.KindWatchedGroup
	}
	return nil, reviews.ErrNotFound{Kind: objKind, Key: entryID}
}
