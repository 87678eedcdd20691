// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviewstest

import (
	"runtime"
	"sync"

	"github.com/diffeo/go-reviewapi/reviews"
)

// workerCount returns the number of goroutines pooled will start.
func workerCount() int {
	return runtime.GOMAXPROCS(0) * 4
}

// pooled calls f workerCount times in separate goroutines and waits
// for them all to finish.
func pooled(f func(seq int)) {
	wait := sync.WaitGroup{}
	count := workerCount()
	wait.Add(count)
	for seq := 0; seq < count; seq++ {
		go func(seq int) {
			defer wait.Done()
			f(seq)
		}(seq)
	}
	wait.Wait()
}

// TestConcurrentCreateDraft checks that racing to create a draft
// produces exactly one.
func (s *Suite) TestConcurrentCreateDraft() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	rr := s.makeRequest(repo, alice)

	count := workerCount()
	ids := make([]int, count)
	created := make([]bool, count)
	errs := make([]error, count)
	pooled(func(seq int) {
		d, c, err := s.Store.CreateDraft(&reviews.Draft{ReviewRequestID: rr.ID})
		if err == nil {
			ids[seq], created[seq] = d.ID, c
		}
		errs[seq] = err
	})

	winners := 0
	for seq := 0; seq < count; seq++ {
		if !s.NoError(errs[seq]) {
			continue
		}
		s.Equal(ids[0], ids[seq])
		if created[seq] {
			winners++
		}
	}
	s.Equal(1, winners)
}

// TestConcurrentGetOrCreateReview checks that racing to start a
// review leaves the user with one pending review.
func (s *Suite) TestConcurrentGetOrCreateReview() {
	repo := s.makeRepository()
	alice := s.makeUser("alice")
	bob := s.makeUser("bob")
	rr := s.makeRequest(repo, alice)

	count := workerCount()
	ids := make([]int, count)
	errs := make([]error, count)
	pooled(func(seq int) {
		r, _, err := s.Store.GetOrCreateReview(&reviews.Review{
			ReviewRequestID: rr.ID,
			User:            bob.Username,
		})
		if err == nil {
			ids[seq] = r.ID
		}
		errs[seq] = err
	})
	for seq := 0; seq < count; seq++ {
		if s.NoError(errs[seq]) {
			s.Equal(ids[0], ids[seq])
		}
	}

	list, err := s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, User: bob.Username})
	if s.NoError(err) {
		s.Len(list, 1)
	}
}
