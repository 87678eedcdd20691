// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// metrics holds the server's Prometheus collectors.
type metrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	ReviewSummary *prometheus.GaugeVec
}

func newMetrics() *metrics {
	return &metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "diffeo",
				Subsystem: "reviews",
				Name:      "http_requests_total",
				Help:      "API requests by method, route and status",
			},
			[]string{"method", "route", "code"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "diffeo",
				Subsystem: "reviews",
				Name:      "http_request_duration_seconds",
				Help:      "API request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReviewSummary: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "diffeo",
				Subsystem: "reviews",
				Name:      "review_request_summary",
				Help:      "Public review requests by status",
			},
			[]string{"status"},
		),
	}
}

// register adds every collector, plus the workflow event counter, to
// a registry.
func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Requests, m.Latency, m.ReviewSummary, workflow.PublishedEvents} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// middleware records each request.  The route label is the name of
// the matching API route, or "other".
func (m *metrics) middleware(router *mux.Router, clk clock.Clock) negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		route := "other"
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil && match.Route.GetName() != "" {
			route = match.Route.GetName()
		}
		start := clk.Now()
		next(w, r)
		code := http.StatusOK
		if rw, ok := w.(negroni.ResponseWriter); ok && rw.Status() != 0 {
			code = rw.Status()
		}
		m.Requests.With(prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"code":   strconv.Itoa(code),
		}).Inc()
		m.Latency.With(prometheus.Labels{
			"method": r.Method,
			"route":  route,
		}).Observe(clk.Now().Sub(start).Seconds())
	}
}

var summaryStatuses = []reviews.Status{
	reviews.StatusPending,
	reviews.StatusSubmitted,
	reviews.StatusDiscarded,
}

// summarize sets the review request gauge once.
func (m *metrics) summarize(store reviews.Store) error {
	for _, status := range summaryStatuses {
		n, err := store.CountReviewRequests(&reviews.ReviewRequestQuery{Status: status})
		if err != nil {
			return err
		}
		m.ReviewSummary.With(prometheus.Labels{"status": string(status)}).Set(float64(n))
	}
	return nil
}

// observe refreshes the review request gauge forever.
func (m *metrics) observe(store reviews.Store, clk clock.Clock, every time.Duration) {
	ticker := clk.Ticker(every)
	defer ticker.Stop()
	for {
		if err := m.summarize(store); err != nil {
			logrus.WithFields(logrus.Fields{
				"err": err,
			}).Error("Could not summarize review requests")
		}
		<-ticker.C
	}
}
