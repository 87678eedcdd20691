// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"sync"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

const racers = 16

// race calls f racers times at once and waits for all of them.
func race(f func(seq int)) {
	var wait sync.WaitGroup
	wait.Add(racers)
	for seq := 0; seq < racers; seq++ {
		go func(seq int) {
			defer wait.Done()
			f(seq)
		}(seq)
	}
	wait.Wait()
}

func (s *Suite) TestConcurrentPrepareDraft() {
	rr := s.publishedRequest("Race me")
	ids := make([]int, racers)
	errs := make([]error, racers)
	race(func(seq int) {
		d, err := s.Service.PrepareDraft(s.Owner, rr)
		if err == nil {
			ids[seq] = d.ID
		}
		errs[seq] = err
	})
	for seq := range ids {
		if s.NoError(errs[seq]) {
			s.Equal(ids[0], ids[seq])
		}
	}
}

func (s *Suite) TestConcurrentGetOrCreateReview() {
	rr := s.publishedRequest("Race me")
	ids := make([]int, racers)
	created := make([]bool, racers)
	errs := make([]error, racers)
	race(func(seq int) {
		r, c, err := s.Service.GetOrCreateReview(s.Reviewer, rr, nil, workflow.ReviewChanges{})
		if err == nil {
			ids[seq], created[seq] = r.ID, c
		}
		errs[seq] = err
	})
	winners := 0
	for seq := range ids {
		if s.NoError(errs[seq]) {
			s.Equal(ids[0], ids[seq])
		}
		if created[seq] {
			winners++
		}
	}
	s.Equal(1, winners)

	pending, err := s.Store.Reviews(reviews.ReviewQuery{ReviewRequestID: rr.ID, User: "reviewer"})
	if s.NoError(err) {
		s.Len(pending, 1)
	}
}
