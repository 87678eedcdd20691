// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package workflow holds the business rules of the review service.
// It enforces the permission policy, owns the draft lifecycle of
// review requests, moves reviews and replies from private to public,
// validates comments, and manages watch lists.
//
// Every operation takes the acting user as its first argument after
// any context.  A nil user is anonymous; anonymous users may read
// public objects but any mutation fails with
// reviews.ErrNotLoggedIn.  Objects passed in are expected to have
// been loaded from s.Store; operations return fresh copies rather
// than modifying their arguments unless documented otherwise.
package workflow

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sirupsen/logrus"
)

// Service runs review workflows against a store and its
// collaborators.  Store is required.  A nil Clock uses the wall
// clock.  A nil Notifier drops events.  A nil SCM behaves as a
// repository tool that implements nothing.  Parser is required to
// upload diffs, Renderer to render them, and Files to upload
// screenshots.  A nil Logger uses the logrus standard logger.
type Service struct {
	Store    reviews.Store
	Clock    clock.Clock
	Users    reviews.UserResolver
	Notifier reviews.Notifier
	SCM      reviews.SCMTool
	Parser   reviews.DiffParser
	Renderer reviews.DiffRenderer
	Files    reviews.FileStorage
	Logger   *logrus.Logger
}

func (s *Service) logger() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) notify(event reviews.Event) {
	if s.Notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.Notifier.Notify(event)
}

// requireLogin returns ErrNotLoggedIn for the anonymous user.
func requireLogin(p *reviews.User) error {
	if p == nil {
		return reviews.ErrNotLoggedIn
	}
	return nil
}

// denied returns ErrNotLoggedIn for anonymous users and
// ErrPermissionDenied otherwise.  Use it once a permission check has
// failed.
func denied(p *reviews.User) error {
	if p == nil {
		return reviews.ErrNotLoggedIn
	}
	return reviews.ErrPermissionDenied
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, item := range list {
		if item == n {
			return true
		}
	}
	return false
}

func username(p *reviews.User) string {
	if p == nil {
		return ""
	}
	return p.Username
}
