// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/gorilla/mux"
)

// Paging defaults for lists.
const (
	defaultMaxResults = 25
	maxMaxResults     = 200
)

// call holds all of the information and objects that can be extracted
// from one request: the acting user, URL parameters, and the objects
// named by the URL path.
type call struct {
	api         *restAPI
	req         *http.Request
	ctx         context.Context
	principal   *reviews.User
	vars        map[string]string
	QueryParams url.Values

	// objects holds the resolved path objects by node kind.
	objects map[reviews.Kind]reviews.Object
	target  reviews.Object

	reviewCache map[int]*reviews.Review
}

// newCall resolves the principal and the path of req.  Every
// ancestor is looked up inside its parent and must be readable; the
// target is too for item requests.  Singleton ancestors are not
// looked up.
func (api *restAPI) newCall(req *http.Request, n *node, item bool) (*call, error) {
	c := &call{
		api:         api,
		req:         req,
		ctx:         req.Context(),
		vars:        mux.Vars(req),
		QueryParams: req.URL.Query(),
		objects:     make(map[reviews.Kind]reviews.Object),
		reviewCache: make(map[int]*reviews.Review),
	}
	var err error
	c.principal, err = auth.Principal(c.ctx)
	if err != nil {
		return c, err
	}
	for _, a := range n.chain() {
		isTarget := a == n
		if isTarget && !item {
			break
		}
		if a.lookup == nil || (a.singleton && !isTarget) {
			continue
		}
		obj, err := a.lookup(c, c.vars[a.key])
		if err != nil {
			return c, err
		}
		if a.canRead != nil && !a.canRead(c, obj) {
			return c, c.denied()
		}
		c.objects[a.kind] = obj
		if isTarget {
			c.target = obj
		}
	}
	return c, nil
}

// denied returns the error for a failed permission check.
func (c *call) denied() error {
	if c.principal == nil {
		return reviews.ErrNotLoggedIn
	}
	return reviews.ErrPermissionDenied
}

// base returns the scheme and host that absolute URLs start with.
func (c *call) base() string {
	if c.api.Site.URL != "" {
		u, err := url.Parse(c.api.Site.URL)
		if err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	scheme := "http"
	if c.req.TLS != nil {
		scheme = "https"
	}
	if proto := c.req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.req.Host
}

// url builds the absolute URL of a route.
func (c *call) url(route string, vars ...string) (string, error) {
	var out string
	err := buildURLs(c.api.Router, c.base(), vars...).URL(&out, route).Error
	return out, err
}

// template builds the URI template of a route.
func (c *call) template(route string) (string, error) {
	var out string
	err := buildURLs(c.api.Router, c.base()).Template(&out, route).Error
	return out, err
}

// selfURL returns the absolute URL of the current request.
func (c *call) selfURL() string {
	return c.base() + c.req.URL.RequestURI()
}

// name decodes a user or group name from the URL.
func (c *call) name(key string) (string, error) {
	name, err := restdata.MaybeDecodeName(key)
	if err != nil {
		return "", restdata.ErrBadRequest{Err: err}
	}
	return name, nil
}

// parseID parses a numeric key from the URL.  Routes only match digits, so
// failure means the object cannot exist.
func parseID(key string, kind reviews.Kind) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, reviews.ErrNotFound{Kind: kind, Key: key}
	}
	return n, nil
}

// BoolParam looks at c.QueryParams for a parameter named name.  If
// it has a normally-truthy value (1, on, false, no, ...) then return
// that value.  Otherwise (empty string, foo, ...) return def.
func (c *call) BoolParam(name string, def bool) bool {
	switch strings.ToLower(c.QueryParams.Get(name)) {
	case "0", "f", "n", "false", "off", "no":
		return false
	case "1", "t", "y", "true", "on", "yes":
		return true
	default:
		return def
	}
}

// IntParam reads an integer query parameter, returning def if it is
// absent.
func (c *call) IntParam(name string, def int) (int, error) {
	s := c.QueryParams.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, restdata.ErrInvalidAttribute{Name: name, Err: err}
	}
	return n, nil
}

// expand returns the set of fields to serialize inline instead of as
// links, from the comma-separated expand parameter.
func (c *call) expand() map[string]bool {
	result := make(map[string]bool)
	for _, name := range reviews.SplitList(c.QueryParams.Get("expand")) {
		result[name] = true
	}
	return result
}

// page is a window of a list.  A negative limit means no limit.
type page struct {
	start int
	limit int
}

var allResults = page{start: 0, limit: -1}

// page reads the start and max-results parameters.
func (c *call) page() (page, error) {
	start, err := c.IntParam("start", 0)
	if err != nil {
		return page{}, err
	}
	limit, err := c.IntParam("max-results", defaultMaxResults)
	if err != nil {
		return page{}, err
	}
	if start < 0 {
		start = 0
	}
	if limit < 0 {
		limit = defaultMaxResults
	}
	if limit > maxMaxResults {
		limit = maxMaxResults
	}
	return page{start: start, limit: limit}, nil
}

// pageOf selects pg's window of all, returning it and the total
// length.
func pageOf(all []reviews.Object, pg page) ([]reviews.Object, int, error) {
	total := len(all)
	lo := pg.start
	if lo > total {
		lo = total
	}
	hi := total
	if pg.limit >= 0 && lo+pg.limit < hi {
		hi = lo + pg.limit
	}
	return all[lo:hi], total, nil
}

// objects converts a slice of domain objects.
func objects[T reviews.Object](list []T) []reviews.Object {
	result := make([]reviews.Object, len(list))
	for i, obj := range list {
		result[i] = obj
	}
	return result
}

// Typed accessors for resolved path objects.

func (c *call) user() *reviews.User {
	u, _ := c.objects[reviews.KindUser].(*reviews.User)
	return u
}

func (c *call) group() *reviews.Group {
	g, _ := c.objects[reviews.KindGroup].(*reviews.Group)
	return g
}

func (c *call) repository() *reviews.Repository {
	r, _ := c.objects[reviews.KindRepository].(*reviews.Repository)
	return r
}

func (c *call) reviewRequest() *reviews.ReviewRequest {
	rr, _ := c.objects[reviews.KindReviewRequest].(*reviews.ReviewRequest)
	return rr
}

func (c *call) diffSet() *reviews.DiffSet {
	ds, _ := c.objects[reviews.KindDiffSet].(*reviews.DiffSet)
	return ds
}

func (c *call) fileDiff() *reviews.FileDiff {
	fd, _ := c.objects[reviews.KindFileDiff].(*reviews.FileDiff)
	return fd
}

func (c *call) screenshot() *reviews.Screenshot {
	ss, _ := c.objects[reviews.KindScreenshot].(*reviews.Screenshot)
	return ss
}

// review returns the top-level review in the path.
func (c *call) review() *reviews.Review {
	r, _ := c.objects[reviews.KindReview].(*reviews.Review)
	return r
}

// reply returns the reply in the path.
func (c *call) reply() *reviews.Review {
	r, _ := c.objects[reviews.KindReply].(*reviews.Review)
	return r
}

// reviewByID fetches a review for serialization, remembering it for
// the rest of the call.
func (c *call) reviewByID(id int) (*reviews.Review, error) {
	if r, ok := c.reviewCache[id]; ok {
		return r, nil
	}
	r, err := c.api.Service.Store.Review(id)
	if err != nil {
		return nil, err
	}
	c.reviewCache[id] = r
	return r, nil
}
