// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains the REST skeleton framework.
//
// The bulk of this is dealing with HTTP content type negotiation, and
// providing a standard way to deal with input and output values.  A
// single resourceHandler serves every node; the node's hooks supply
// the objects and the field schema supplies the representation.

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sirupsen/logrus"
)

// Output formats of a media type.
const (
	formatJSON = "json"
	formatXML  = "xml"
	formatRaw  = "raw"
)

// errBadAccept is returned from negotiateResponse() if the Accept:
// header is malformed (and no more specific error applies).
var errBadAccept = restdata.ErrBadRequest{Err: errors.New("Invalid Accept: header")}

// errMethodNotAllowed is used within the resourceHandler implementation
// to flag an error if a particular HTTP method is not allowed.  This
// corresponds exactly to the 405 Method Not Allowed HTTP status code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// errImmutable is returned when a request tries to set fields that
// cannot change.
func errImmutable(names []string) error {
	var invalid reviews.ErrInvalidInput
	for _, name := range names {
		invalid.Add(name, "This field cannot be modified")
	}
	return invalid
}

// Hook results other than plain objects and nil.

// created is returned from hooks that made a new object.  The
// response is 201 with a Location header.
type created struct {
	obj reviews.Object
}

// redirect sends the client to another object.  If withBody is set the
// target is also serialized in the body.
type redirect struct {
	status   int
	to       reviews.Object
	withBody bool
}

// document is a response body that is not a single object.  "stat"
// is added to it.
type document map[string]interface{}

// rawBody is a response in a non-structured media type, such as a
// patch file or an image.
type rawBody struct {
	contentType string
	filename    string
	data        io.Reader
}

// response is a fully resolved reply to a request.
type response struct {
	status   int
	location string
	body     interface{}
	raw      *rawBody
}

type resourceHandler struct {
	api  *restAPI
	node *node
	item bool
}

// mediaTypes maps every media type the handler can produce to its
// format.
func (h *resourceHandler) mediaTypes() map[string]string {
	name := h.node.name
	if !h.item {
		name = h.node.plural
	}
	name = strings.Replace(name, "_", "-", -1)
	types := map[string]string{
		"application/json":        formatJSON,
		"text/json":               formatJSON,
		restdata.VendorJSON(name): formatJSON,
		"application/xml":         formatXML,
		"text/xml":                formatXML,
		restdata.VendorXML(name):  formatXML,
	}
	if h.item {
		for _, t := range h.node.itemTypes {
			switch {
			case restdata.IsJSON(t):
				types[t] = formatJSON
			case restdata.IsXML(t):
				types[t] = formatXML
			default:
				types[t] = formatRaw
			}
		}
	}
	return types
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		c            *call
		out          response
		err          error
		responseType = restdata.JSONMediaType
		types        = h.mediaTypes()
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			errResp := restdata.ErrorResponse{}
			errResp.FromPanic(recovered)
			h.api.Logger.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.URL.Path,
				"stack":  errResp.Stack,
			}).Error(errResp.Err.Msg)
			h.write(resp, req, restdata.JSONMediaType, formatJSON, response{
				status: errResp.Status,
				body:   &errResp,
			})
		}
	}()

	// Start by trying to come up with a response type, even before
	// trying to parse the input.  This determines what format an
	// error message could be sent back as.
	responseType, err = negotiateResponse(req, types)
	if err != nil {
		responseType = restdata.JSONMediaType
	}

	// Resolve the principal and the objects in the URL
	if err == nil {
		c, err = h.api.newCall(req, h.node, h.item)
	}

	// Actually call the handler method
	if err == nil {
		out, err = h.dispatch(c, req.Method, responseType)
	}

	format := types[responseType]
	if err != nil {
		errResp := restdata.ErrorResponse{}
		errResp.FromError(err)
		h.api.logError(req, err, &errResp)
		if format != formatJSON && format != formatXML {
			responseType, format = restdata.JSONMediaType, formatJSON
		}
		out = response{status: errResp.Status, body: &errResp}
	}
	if req.Method == http.MethodHead {
		out.body = nil
		out.raw = nil
	}
	h.write(resp, req, responseType, format, out)
}

// dispatch runs the request against the node's hooks.
func (h *resourceHandler) dispatch(c *call, method, responseType string) (response, error) {
	n := h.node
	if !n.allows(h.item, method) {
		return response{}, errMethodNotAllowed{Method: method}
	}
	var (
		out interface{}
		err error
	)
	okStatus := http.StatusOK
	switch method {
	case http.MethodGet, http.MethodHead:
		switch {
		case !h.item:
			out, err = h.getList(c)
		case n.render != nil && isItemType(n, responseType):
			out, err = n.render(c, c.target, responseType)
		case n.get != nil:
			out, err = n.get(c, c.target)
		default:
			out = c.target
		}
	case http.MethodPut:
		if n.canModify != nil && c.target != nil && !n.canModify(c, c.target) {
			return response{}, c.denied()
		}
		var p *restdata.Payload
		if p, err = h.payload(c); err == nil {
			out, err = n.update(c, c.target, p)
		}
	case http.MethodPost:
		var p *restdata.Payload
		if p, err = h.payload(c); err == nil {
			out, err = n.create(c, p)
		}
		okStatus = http.StatusCreated
	case http.MethodDelete:
		if n.canDelete != nil && !n.canDelete(c, c.target) {
			return response{}, c.denied()
		}
		out, err = n.remove(c, c.target)
	}
	if err != nil {
		return response{}, err
	}
	return h.toResponse(c, out, okStatus)
}

func isItemType(n *node, mediaType string) bool {
	for _, t := range n.itemTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}

// payload reads the request body.  An update may not name any field
// the node declares immutable; creation may set them.
func (h *resourceHandler) payload(c *call) (*restdata.Payload, error) {
	p, err := restdata.ReadPayload(c.req)
	if err != nil {
		return nil, err
	}
	if c.req.Method != http.MethodPut {
		return p, nil
	}
	var immutable []string
	for _, f := range h.node.fields {
		if !f.mutable && p.Has(f.name) {
			immutable = append(immutable, f.name)
		}
	}
	if len(immutable) > 0 {
		return nil, errImmutable(immutable)
	}
	return p, nil
}

// toResponse converts a hook result to a response.  Plain objects
// are sent with okStatus.
func (h *resourceHandler) toResponse(c *call, out interface{}, okStatus int) (response, error) {
	switch o := out.(type) {
	case nil:
		return response{status: http.StatusNoContent}, nil
	case document:
		o["stat"] = restdata.StatOK
		return response{status: http.StatusOK, body: o}, nil
	case *rawBody:
		return response{status: http.StatusOK, raw: o}, nil
	case created:
		body, href, err := h.envelope(c, o.obj)
		return response{status: http.StatusCreated, location: href, body: body}, err
	case redirect:
		body, href, err := h.envelope(c, o.to)
		if !o.withBody {
			body = nil
		}
		return response{status: o.status, location: href, body: body}, err
	case reviews.Object:
		body, _, err := h.envelope(c, o)
		return response{status: okStatus, body: body}, err
	}
	return response{}, fmt.Errorf("unexpected handler result %T", out)
}

// envelope serializes obj inside the standard envelope, and returns
// its URL.
func (h *resourceHandler) envelope(c *call, obj reviews.Object) (document, string, error) {
	n := h.node
	if n.listOnly || obj.Kind() != n.kind {
		n = h.api.nodeFor(obj)
	}
	if n == nil {
		return nil, "", fmt.Errorf("no resource for %v", obj.Kind())
	}
	item, err := c.serialize(n, obj)
	if err != nil {
		return nil, "", err
	}
	href, err := c.href(n, obj)
	if err != nil {
		return nil, "", err
	}
	return document{"stat": restdata.StatOK, n.name: item}, href, nil
}

// getList serves a list, or just its length with counts-only.
func (h *resourceHandler) getList(c *call) (interface{}, error) {
	n := h.node
	if c.BoolParam("counts-only", false) {
		var total int
		var err error
		if n.count != nil {
			total, err = n.count(c)
		} else {
			_, total, err = n.list(c, allResults)
		}
		if err != nil {
			return nil, err
		}
		return document{"count": total}, nil
	}

	pg, err := c.page()
	if err != nil {
		return nil, err
	}
	objs, total, err := n.list(c, pg)
	if err != nil {
		return nil, err
	}
	items := make([]interface{}, len(objs))
	for i, obj := range objs {
		itemNode := n
		if n.listOnly {
			itemNode = h.api.nodeFor(obj)
		}
		items[i], err = c.serialize(itemNode, obj)
		if err != nil {
			return nil, err
		}
	}

	self := c.selfURL()
	links := restdata.Links{"self": {Method: "GET", Href: self}}
	if n.allows(false, http.MethodPost) {
		links["create"] = restdata.Link{Method: "POST", Href: self}
	}
	if pg.start+len(objs) < total {
		links["next"] = restdata.Link{Method: "GET", Href: withQuery(self, map[string]string{
			"start":       strconv.Itoa(pg.start + pg.limit),
			"max-results": strconv.Itoa(pg.limit),
		})}
	}
	if pg.start > 0 {
		prev := pg.start - pg.limit
		if prev < 0 {
			prev = 0
		}
		links["prev"] = restdata.Link{Method: "GET", Href: withQuery(self, map[string]string{
			"start":       strconv.Itoa(prev),
			"max-results": strconv.Itoa(pg.limit),
		})}
	}
	return document{n.plural: items, "total_results": total, "links": links}, nil
}

// write sends a response.  Once the status line is out there is no
// way to report a failure to the client, so encoding errors are only
// logged.
func (h *resourceHandler) write(resp http.ResponseWriter, req *http.Request, responseType, format string, out response) {
	if out.location != "" {
		resp.Header().Set("Location", out.location)
	}
	if out.raw != nil {
		resp.Header().Set("Content-Type", out.raw.contentType)
		if out.raw.filename != "" {
			resp.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": out.raw.filename}))
		}
		resp.WriteHeader(out.status)
		if _, err := io.Copy(resp, out.raw.data); err != nil {
			h.api.Logger.WithError(err).Debug("could not write response")
		}
		if closer, ok := out.raw.data.(io.Closer); ok {
			_ = closer.Close()
		}
		return
	}
	if out.body == nil {
		resp.WriteHeader(out.status)
		return
	}
	resp.Header().Set("Content-Type", responseType)
	resp.WriteHeader(out.status)
	var err error
	if format == formatXML {
		err = restdata.EncodeXML(resp, out.body)
	} else {
		err = restdata.EncodeJSON(resp, out.body)
	}
	if err != nil {
		h.api.Logger.WithError(err).WithField("path", req.URL.Path).Debug("could not write response")
	}
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.  The
// api_format query parameter overrides the Accept: header.  If
// nothing acceptable is known, the generic JSON type is chosen.
func negotiateResponse(req *http.Request, typeMap map[string]string) (string, error) {
	switch req.URL.Query().Get("api_format") {
	case "json":
		return restdata.JSONMediaType, nil
	case "xml":
		return restdata.XMLMediaType, nil
	}

	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	mediaRanges := strings.Split(accept, ",")
	for _, mediaRange := range mediaRanges {
		mediaRange = strings.TrimSpace(mediaRange)
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", restdata.ErrBadRequest{Err: err}
		}

		// What is the "q" ("quality") parameter for this type?
		// If it is less than the best known so far, skip it
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", restdata.ErrBadRequest{Err: err}
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		if q < bestQ {
			continue
		}

		// This is acceptable if it's listed in the type
		// map; or it's one of a couple of specific wildcards.
		// Also need to handle wildcard precedence.  So:
		if mediaType == "*/*" {
			// Doesn't override anything.
			if q > bestQ {
				bestType = mediaType
				bestQ = q
			}
		} else if mediaType == "text/*" || mediaType == "application/*" {
			// Only overrides "*/*".
			if q > bestQ || bestType == "*/*" {
				bestType = mediaType
				bestQ = q
			}
		} else if _, knownType := typeMap[mediaType]; knownType {
			// Overrides any wildcard.  We want the first one
			// at a given q to win.
			if q > bestQ || bestType == "*/*" || bestType == "text/*" || bestType == "application/*" {
				bestType = mediaType
				bestQ = q
			}
		}
		// Otherwise we don't recognize this type at all, so
		// just drop it.
	}
	switch {
	case bestQ == 0.0:
		return restdata.JSONMediaType, nil
	case bestType == "text/*":
		return "text/json", nil
	case strings.HasSuffix(bestType, "/*"):
		return restdata.JSONMediaType, nil
	default:
		return bestType, nil
	}
}
