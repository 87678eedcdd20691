// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package reviewstest provides generic functional tests for the
// reviews.Store interface.  A typical backend test module needs to
// wrap Suite to create its backend:
//
//	package mybackend
//
//	import (
//		"testing"
//
//		"github.com/diffeo/go-reviewapi/reviews/reviewstest"
//		"github.com/stretchr/testify/suite"
//	)
//
//	// Suite is the per-backend generic test suite.
//	type Suite struct {
//		reviewstest.Suite
//	}
//
//	// SetupSuite does global setup for the test suite.
//	func (s *Suite) SetupSuite() {
//		s.Suite.SetupSuite()
//		s.Store = NewWithClock(s.Clock)
//	}
//
//	// TestStore runs the Store generic tests.
//	func TestStore(t *testing.T) {
//		suite.Run(t, &Suite{})
//	}
//
// The backend may be shared between tests and with other processes,
// so every test creates its own uniquely named users and repository
// and constrains its queries to them.
package reviewstest

import (
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic Store backend test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is pre-initialized to a mock clock.
	Clock *clock.Mock

	// Store contains the backend under test.  It is set by
	// importing packages.
	Store reviews.Store
}

// SetupSuite does one-time initialization for the test suite.
func (s *Suite) SetupSuite() {
	s.Clock = clock.NewMock()
	s.Clock.Set(time.Date(2017, 3, 1, 12, 0, 0, 0, time.UTC))
}

// name returns a string unique to the running test with a suffix.
func (s *Suite) name(suffix string) string {
	base := strings.Replace(s.T().Name(), "/", "_", -1)
	return base + "_" + suffix
}

// makeUser creates a user with a name unique to the running test.
func (s *Suite) makeUser(suffix string) *reviews.User {
	u := &reviews.User{
		Username:  s.name(suffix),
		FirstName: suffix,
		LastName:  "Tester",
		Email:     suffix + "@example.com",
	}
	s.Require().NoError(s.Store.CreateUser(u))
	return u
}

// makeRepository creates a public repository unique to the running
// test.
func (s *Suite) makeRepository() *reviews.Repository {
	r := &reviews.Repository{
		Name:       s.name("repo"),
		Path:       "/repos/" + s.name("repo"),
		MirrorPath: "git@example.com:" + s.name("repo"),
		Tool:       "github",
		Public:     true,
	}
	s.Require().NoError(s.Store.CreateRepository(r))
	return r
}

// makeRequest creates a public pending review request.
func (s *Suite) makeRequest(repo *reviews.Repository, submitter *reviews.User) *reviews.ReviewRequest {
	rr := &reviews.ReviewRequest{
		Submitter:    submitter.Username,
		RepositoryID: repo.ID,
		Status:       reviews.StatusPending,
		Public:       true,
		Summary:      "summary",
	}
	s.Require().NoError(s.Store.CreateReviewRequest(rr))
	return rr
}

// assertNotFound asserts that err is a reviews.ErrNotFound.
func (s *Suite) assertNotFound(err error) {
	s.Truef(reviews.IsNotFound(err), "expected not-found error, got %v", err)
}
