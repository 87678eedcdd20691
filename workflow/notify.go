// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PublishedEvents counts the events delivered to LogNotifiers, by
// event type.  It is not registered with any Prometheus registry;
// servers that export metrics should register it.
var PublishedEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "reviews",
		Name:      "published_events_total",
		Help:      "Review publication and status events",
	},
	[]string{"type"},
)

// LogNotifier is a Notifier that writes each event to a log and
// counts it.
type LogNotifier struct {
	// Logger receives events at Info level.  If nil, the logrus
	// standard logger is used.
	Logger *logrus.Logger

	// Counter is incremented for each event.  If nil,
	// PublishedEvents is used.
	Counter *prometheus.CounterVec
}

// Notify logs and counts one event.
func (n LogNotifier) Notify(event reviews.Event) {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	counter := n.Counter
	if counter == nil {
		counter = PublishedEvents
	}
	counter.With(prometheus.Labels{"type": event.Type}).Inc()
	logger.WithFields(logrus.Fields{
		"type":           event.Type,
		"actor":          event.Actor,
		"review_request": event.ReviewRequestID,
		"review":         event.ReviewID,
		"targets":        event.Targets,
		"timestamp":      event.Timestamp,
	}).Info("review event")
}
