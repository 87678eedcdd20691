// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"net/http"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Version is the product version reported by the info resource.
const Version = "1.0.0"

// Administrator is a site contact listed by the info resource.
type Administrator struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Site describes the installation serving the API.
type Site struct {
	// Name is the product name reported by the info resource.
	Name string `yaml:"name"`
	// URL is the public root URL of the site.  If empty, links
	// are built from each request's Host: header.
	URL            string          `yaml:"url"`
	Administrators []Administrator `yaml:"administrators"`
}

// Options configures the API.
type Options struct {
	Site Site
	// Logger receives request errors; nil uses the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// NewRouter creates a new HTTP handler that processes all API
// requests.  All resources are under /api/, e.g.
// /api/review-requests/.  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(svc *workflow.Service, opts Options) *mux.Router {
	r := mux.NewRouter()
	PopulateRouter(r.PathPrefix("/api").Subrouter(), svc, opts)
	return r
}

// PopulateRouter adds API routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the API under a different path:
//
//	r := mux.NewRouter()
//	s := r.PathPrefix("/reviews/api").Subrouter()
//	PopulateRouter(s, svc, restserver.Options{})
func PopulateRouter(r *mux.Router, svc *workflow.Service, opts Options) {
	api := &restAPI{
		Service: svc,
		Router:  r,
		Site:    opts.Site,
		Logger:  opts.Logger,
		byKind:  make(map[reviews.Kind]*node),
	}
	if api.Logger == nil && svc.Logger != nil {
		api.Logger = svc.Logger
	}
	if api.Logger == nil {
		api.Logger = logrus.StandardLogger()
	}
	if api.Site.Name == "" {
		api.Site.Name = "Review Board"
	}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the REST API.
type restAPI struct {
	Service *workflow.Service
	Router  *mux.Router
	Site    Site
	Logger  logrus.FieldLogger

	root   *node
	byKind map[reviews.Kind]*node
}

// PopulateRouter adds all API URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	api.root = api.rootNode().add(
		api.infoNode(),
		api.sessionNode(),
		api.usersNode(),
		api.groupsNode(),
		api.repositoriesNode(),
		api.reviewRequestsNode(),
	)
	api.register(r, api.root, "/")
	r.NotFoundHandler = http.HandlerFunc(api.notFound)
}

// notFound answers requests for URLs outside the resource tree.
func (api *restAPI) notFound(resp http.ResponseWriter, req *http.Request) {
	h := &resourceHandler{api: api, node: &node{name: "error"}}
	errResp := restdata.ErrorResponse{}
	errResp.FromError(reviews.ErrNotFound{})
	h.write(resp, req, restdata.JSONMediaType, formatJSON, response{
		status: errResp.Status,
		body:   &errResp,
	})
}

// logError records a failed request.  Server-side failures are
// errors; everything else is the client's problem and only logged at
// debug level.
func (api *restAPI) logError(req *http.Request, err error, resp *restdata.ErrorResponse) {
	entry := api.Logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
		"code":   int(resp.Err.Code),
	})
	var upstream reviews.ErrUpstream
	if errors.As(err, &upstream) {
		entry.WithError(upstream.Err).Error("upstream failure")
		return
	}
	if resp.Status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
		return
	}
	entry.WithError(err).Debug("request rejected")
}
