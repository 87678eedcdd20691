// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains various HTTP-related helpers.  I sort of suspect
// most of them belong in some sort of standard library I haven't
// immediately found.

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/gorilla/mux"
)

type urlBuilder struct {
	Router *mux.Router
	Base   string
	Params []string
	Error  error
}

// buildURLs starts building absolute URLs under base.  params are
// route variable name/value pairs; values are encoded as names.
func buildURLs(router *mux.Router, base string, params ...string) *urlBuilder {
	encoded := make([]string, len(params))
	for i, value := range params {
		if i%2 == 1 {
			value = restdata.MaybeEncodeName(value)
		}
		encoded[i] = value
	}
	return &urlBuilder{Router: router, Base: base, Params: encoded}
}

func (u *urlBuilder) Route(route string) *mux.Route {
	if u.Error != nil {
		return nil
	}
	r := u.Router.Get(route)
	if r == nil {
		u.Error = fmt.Errorf("No such route %q", route)
	}
	return r
}

func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	var r *mux.Route
	var url *url.URL
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		url, u.Error = r.URL(u.Params...)
	}
	if u.Error == nil {
		*out = u.Base + url.String()
	}
	return u
}

// varPattern matches a route variable with a pattern, {name:pattern}.
var varPattern = regexp.MustCompile(`\{([^{}:]+):[^{}]*\}`)

// Template produces an RFC 6570 URI template for a route, with every
// route variable left open.
func (u *urlBuilder) Template(out *string, route string) *urlBuilder {
	var r *mux.Route
	var tpl string
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		tpl, u.Error = r.GetPathTemplate()
	}
	if u.Error == nil {
		*out = u.Base + varPattern.ReplaceAllString(tpl, "{$1}")
	}
	return u
}

// withQuery returns rawurl with query parameters replaced by values.
func withQuery(rawurl string, values map[string]string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	q := u.Query()
	for name, value := range values {
		q.Set(name, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
