// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache_test

import (
	"testing"

	"github.com/diffeo/go-reviewapi/cache"
	"github.com/diffeo/go-reviewapi/memory"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/reviews/reviewstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// Suite runs the generic Store tests through the cache.
type Suite struct {
	reviewstest.Suite
}

// SetupSuite does global setup for the test suite.
func (s *Suite) SetupSuite() {
	s.Suite.SetupSuite()
	s.Store = cache.New(memory.NewWithClock(s.Clock), 16)
}

// TestStore runs the Store generic tests.
func TestStore(t *testing.T) {
	suite.Run(t, &Suite{})
}

// countingStore counts calls to ReviewRequest.
type countingStore struct {
	reviews.Store
	fetches int
}

func (s *countingStore) ReviewRequest(id int) (*reviews.ReviewRequest, error) {
	s.fetches++
	return s.Store.ReviewRequest(id)
}

func TestReviewRequestCaching(t *testing.T) {
	backend := &countingStore{Store: memory.New()}
	store := cache.New(backend, 0)

	rr := &reviews.ReviewRequest{Submitter: "u", Status: reviews.StatusPending}
	if !assert.NoError(t, store.CreateReviewRequest(rr)) {
		return
	}

	for i := 0; i < 3; i++ {
		got, err := store.ReviewRequest(rr.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, rr.ID, got.ID)
		}
	}
	assert.Equal(t, 1, backend.fetches)

	// Changing a returned copy does not change the cache
	got, err := store.ReviewRequest(rr.ID)
	if assert.NoError(t, err) {
		got.Summary = "changed"
	}
	got, err = store.ReviewRequest(rr.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, "", got.Summary)
	}
	assert.Equal(t, 1, backend.fetches)

	// Saving invalidates
	got.Summary = "saved"
	assert.NoError(t, store.SaveReviewRequest(got))
	got, err = store.ReviewRequest(rr.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, "saved", got.Summary)
	}
	assert.Equal(t, 2, backend.fetches)

	assert.NoError(t, store.DeleteReviewRequest(rr.ID))
	_, err = store.ReviewRequest(rr.ID)
	assert.True(t, reviews.IsNotFound(err))
}

func TestMissesAreNotCached(t *testing.T) {
	backend := memory.New()
	store := cache.New(backend, 0)

	_, err := store.User("alice")
	assert.True(t, reviews.IsNotFound(err))

	assert.NoError(t, backend.CreateUser(&reviews.User{Username: "alice"}))
	u, err := store.User("alice")
	if assert.NoError(t, err) {
		assert.Equal(t, "alice", u.Username)
	}
}
