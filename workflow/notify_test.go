// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow_test

import (
	"testing"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "events"}, []string{"type"})
	n := workflow.LogNotifier{Logger: logger, Counter: counter}

	n.Notify(reviews.Event{Type: reviews.EventReviewPublished, Actor: "reviewer", ReviewRequestID: 3, ReviewID: 7})
	n.Notify(reviews.Event{Type: reviews.EventReviewPublished, Actor: "other", ReviewRequestID: 3, ReviewID: 8})
	n.Notify(reviews.Event{Type: reviews.EventReviewRequestClosed, Actor: "owner", ReviewRequestID: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues(reviews.EventReviewPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(reviews.EventReviewRequestClosed)))

	if assert.Len(t, hook.Entries, 3) {
		e := hook.LastEntry()
		assert.Equal(t, logrus.InfoLevel, e.Level)
		assert.Equal(t, "owner", e.Data["actor"])
		assert.Equal(t, 3, e.Data["review_request"])
	}
}

func (s *Suite) TestNotifyTimestamp() {
	s.publishedRequest("Timed")
	if s.Len(s.Events.events, 1) {
		s.Equal(s.Clock.Now().UTC(), s.Events.events[0].Timestamp)
	}
}
