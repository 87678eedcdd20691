// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/restserver"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
	"golang.org/x/time/rate"
)

// HTTP builds the server's HTTP handler.
type HTTP struct {
	Service *workflow.Service
	Options restserver.Options
	Limit   RateLimitConfig
	// ReqLogger, if non-nil, logs every request at Debug level.
	ReqLogger *logrus.Logger
	Metrics   *metrics
	Gatherer  prometheus.Gatherer
	Clock     clock.Clock
}

// Handler assembles the middleware chain in front of the API routes.
// /metrics is served alongside /api/ and skips authentication.
func (h *HTTP) Handler() http.Handler {
	clk := h.Clock
	if clk == nil {
		clk = clock.New()
	}
	r := mux.NewRouter()
	restserver.PopulateRouter(r.PathPrefix("/api").Subrouter(), h.Service, h.Options)

	api := negroni.New()
	api.Use(auth.NewBasic(h.Service.Store))
	api.UseHandler(r)

	top := mux.NewRouter()
	if h.Gatherer != nil {
		top.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	top.PathPrefix("/").Handler(api)

	n := negroni.New(negroni.NewRecovery())
	if h.ReqLogger != nil {
		n.Use(requestLogger(h.ReqLogger, clk))
	}
	if h.Metrics != nil {
		n.Use(h.Metrics.middleware(r, clk))
	}
	if h.Limit.RequestsPerSecond > 0 {
		burst := h.Limit.Burst
		if burst < 1 {
			burst = 1
		}
		n.Use(rateLimit(rate.NewLimiter(rate.Limit(h.Limit.RequestsPerSecond), burst)))
	}
	n.UseHandler(top)
	return n
}

// Serve runs an HTTP server on the specified local address.  This
// serves connections forever, and probably wants to be run in a
// goroutine.
func (h *HTTP) Serve(laddr string) error {
	return http.ListenAndServe(laddr, h.Handler())
}

func requestLogger(logger *logrus.Logger, clk clock.Clock) negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		start := clk.Now()
		next(w, r)
		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"duration": clk.Now().Sub(start),
		}
		if id := r.Header.Get("X-Request-Id"); id != "" {
			fields["request_id"] = id
		}
		if rw, ok := w.(negroni.ResponseWriter); ok {
			fields["status"] = rw.Status()
		}
		logger.WithFields(fields).Debug("request")
	}
}

// errRateLimited is returned when the request limit is exhausted.
type errRateLimited struct{}

func (errRateLimited) Error() string {
	return "Too many requests"
}

func (errRateLimited) HTTPStatus() int {
	return http.StatusTooManyRequests
}

// rateLimit rejects requests once limiter runs dry.
func rateLimit(limiter *rate.Limiter) negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		if limiter.Allow() {
			next(w, r)
			return
		}
		var resp restdata.ErrorResponse
		resp.FromError(errRateLimited{})
		w.Header().Set("Content-Type", restdata.JSONMediaType)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(resp.Status)
		_ = restdata.EncodeJSON(w, &resp)
	}
}
